// Package metrics provides the typed aggregates (Counter, Rate, Trend) written
// concurrently by every virtual user, and the Registry that owns them.
//
// Trend percentiles are policy driven: PolicyExact keeps every sample and
// answers with the nearest-rank method; PolicyHDR records into an HDR
// histogram (1µs to 1h, 3 significant digits) so memory stays bounded on
// soak runs at the cost of ~0.1% relative error on percentiles. Min, max,
// count and mean are exact under both policies.
package metrics
