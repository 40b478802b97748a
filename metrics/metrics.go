// Package metrics holds Prometheus instruments tracking binding
// activity. All collectors are registered with the global registry, so
// importing this package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanizio/configbind"
)

var (
	BindTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "configbind_bind_total",
			Help: "Cumulative number of configuration instances successfully bound.",
		})

	BindErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "configbind_bind_errors_total",
			Help: "Cumulative number of configuration binds that failed validation or coercion.",
		})

	WarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "configbind_warnings_total",
			Help: "Cumulative number of binding warnings (deprecated or legacy properties).",
		})

	ProvidersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "configbind_providers_registered_total",
			Help: "Cumulative number of providers registered with a factory, counted at registration time.",
		})

	PropertiesSeen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "configbind_properties_seen",
			Help: "Number of distinct property names looked up by the current factory.",
		})
)

func init() {
	prometheus.MustRegister(
		BindTotal,
		BindErrorsTotal,
		WarningsTotal,
		ProvidersRegisteredTotal,
		PropertiesSeen,
	)
}

// RecordBindSuccess increments BindTotal. Callers invoke this from the
// success branch of a Provider.Get call: binding happens lazily, well
// after a provider's ConfigurationBound notification fires, so the
// listener hook is the wrong place to count completed binds.
func RecordBindSuccess() {
	BindTotal.Inc()
}

// RecordBindError increments BindErrorsTotal. Callers invoke this from
// the error branch of a Provider.Get call.
func RecordBindError() {
	BindErrorsTotal.Inc()
}

// SetPropertiesSeen refreshes the seen-properties gauge, typically from
// len(factory.AllSeenProperties()) after a round of binding.
func SetPropertiesSeen(n int) {
	PropertiesSeen.Set(float64(n))
}

// RegistrationListener is a configbind.ConfigurationBindingListener
// that increments ProvidersRegisteredTotal for every provider it is
// notified of — at registration time, before that provider has ever
// been built.
type RegistrationListener struct{}

// ConfigurationBound implements configbind.ConfigurationBindingListener.
func (RegistrationListener) ConfigurationBound(binding configbind.Binding, binder *configbind.Binder) {
	ProvidersRegisteredTotal.Inc()
}

// WarningsCounter is a configbind.WarningsMonitor that increments
// WarningsTotal for every warning it observes, leaving the message
// itself unhandled — compose it alongside another monitor (e.g.
// audit.WarningLog) when both counting and persistence are wanted.
type WarningsCounter struct{}

// OnWarning implements configbind.WarningsMonitor.
func (WarningsCounter) OnWarning(propertyName, message string) {
	WarningsTotal.Inc()
}
