package errors

import (
	"fmt"
	"testing"
)

// BenchmarkErrorCreationNoTelemetry tests error creation performance when telemetry is disabled
func BenchmarkErrorCreationNoTelemetry(b *testing.B) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	b.ReportAllocs()

	for b.Loop() {
		_ = New(fmt.Errorf("test error")).
			Component("fieldtrial").
			Category(CategoryValidation).
			Build()
	}
}

// BenchmarkErrorCreationWithContext tests error creation with context when telemetry is disabled
func BenchmarkErrorCreationWithContext(b *testing.B) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	b.ReportAllocs()

	for b.Loop() {
		_ = New(fmt.Errorf("test error")).
			Component("datastore").
			Category(CategoryDatabase).
			Entity("plot", "plot_0190").
			Context("count", 42).
			Build()
	}
}

// mockReporter is a test telemetry reporter that only scrubs
type mockReporter struct {
	enabled bool
}

func (m *mockReporter) IsEnabled() bool { return m.enabled }

func (m *mockReporter) ReportError(err *EnhancedError) {
	_ = scrubMessageForPrivacy(err.Error())
}

// BenchmarkErrorCreationWithTelemetry tests error creation when telemetry is enabled
func BenchmarkErrorCreationWithTelemetry(b *testing.B) {
	SetTelemetryReporter(&mockReporter{enabled: true})
	b.Cleanup(func() { SetTelemetryReporter(nil) })

	b.ReportAllocs()

	for b.Loop() {
		_ = New(fmt.Errorf("presign https://bucket.example.com/k?X-Amz-Signature=abc")).
			Component("blob").
			Category(CategoryStorage).
			Build()
	}
}

// BenchmarkPrivacyScrubbing tests the performance of privacy scrubbing
func BenchmarkPrivacyScrubbing(b *testing.B) {
	msg := "dial trial:secret@tcp(db:3306)/trialbase for jane@example.org via https://x.example.com?token=1"

	b.ReportAllocs()

	for b.Loop() {
		_ = basicScrub(msg)
	}
}
