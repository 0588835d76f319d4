package apt

import "sync/atomic"

// ConnectionMetrics contains atomic metrics for an APT connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ConnectionMetrics struct {
	// MsgSendCount indicates the number of messages written.
	MsgSendCount atomic.Uint64
	// MsgRecvCount indicates the number of messages decoded.
	MsgRecvCount atomic.Uint64
	// MsgErrCount indicates the number of frames that failed to encode or decode.
	MsgErrCount atomic.Uint64

	// QueryCount indicates the number of queries issued.
	QueryCount atomic.Uint64
	// QueryRetryCount indicates the number of decode attempts repeated after a receive timeout.
	QueryRetryCount atomic.Uint64
	// QueryTimeoutCount indicates the number of queries that gave up on a receive timeout.
	QueryTimeoutCount atomic.Uint64
	// MismatchCount indicates the number of responses with an unexpected message ID.
	MismatchCount atomic.Uint64

	// TruncatedCount indicates the number of partially received messages.
	TruncatedCount atomic.Uint64
	// DrainedBytes indicates the number of stray bytes discarded by drains.
	DrainedBytes atomic.Uint64
}

func (m *ConnectionMetrics) incMsgSendCount() {
	m.MsgSendCount.Add(1)
}

func (m *ConnectionMetrics) incMsgRecvCount() {
	m.MsgRecvCount.Add(1)
}

func (m *ConnectionMetrics) incMsgErrCount() {
	m.MsgErrCount.Add(1)
}

func (m *ConnectionMetrics) incQueryCount() {
	m.QueryCount.Add(1)
}

func (m *ConnectionMetrics) incQueryRetryCount() {
	m.QueryRetryCount.Add(1)
}

func (m *ConnectionMetrics) incQueryTimeoutCount() {
	m.QueryTimeoutCount.Add(1)
}

func (m *ConnectionMetrics) incMismatchCount() {
	m.MismatchCount.Add(1)
}

func (m *ConnectionMetrics) incTruncatedCount() {
	m.TruncatedCount.Add(1)
}

func (m *ConnectionMetrics) addDrainedBytes(n int) {
	if n > 0 {
		m.DrainedBytes.Add(uint64(n))
	}
}
