package metrics

import "github.com/rollupmon/rollupmon/types"

type noopMetrics struct{}

// NoopMetrics discards every record; used when metrics are disabled and
// in tests.
var NoopMetrics Metricer = noopMetrics{}

func (noopMetrics) RecordInfo(version string)                                 {}
func (noopMetrics) RecordUp()                                                 {}
func (noopMetrics) RecordEvent(ev *types.RollupEvent)                         {}
func (noopMetrics) RecordHealthStatus(rollup string, status types.HealthStatus) {}
func (noopMetrics) RecordReconnect(rollup, stream string)                     {}
func (noopMetrics) RecordSequencerBlock(rollup string, blockNumber uint64)    {}
func (noopMetrics) RecordSequencerProducing(rollup string, producing bool)    {}
func (noopMetrics) RecordDroppedEvents(count uint64)                          {}
func (noopMetrics) RecordSubscribers(count int)                               {}
