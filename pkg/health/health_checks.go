package health

// Common health check functions

// GraphCheck reports the entity graph's size. An empty graph is healthy;
// the check only surfaces the counts for operators.
func GraphCheck(getSize func() (nodes, edges int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "graph",
			Status:  StatusHealthy,
			Details: make(map[string]any),
		}

		nodes, edges := getSize()
		check.Details["nodes"] = nodes
		check.Details["edges"] = edges
		check.Message = "Graph available"

		return check
	}
}

// ProvidersCheck reports the configured threat-intel providers. A server
// without providers still serves graph operations, so it is degraded, not
// unhealthy.
func ProvidersCheck(getProviders func() []string) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "providers",
			Details: make(map[string]any),
		}

		providers := getProviders()
		check.Details["configured"] = providers
		check.Details["count"] = len(providers)

		if len(providers) == 0 {
			check.Status = StatusDegraded
			check.Message = "No threat-intel providers configured"
		} else {
			check.Status = StatusHealthy
			check.Message = "Providers configured"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
