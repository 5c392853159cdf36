package snowflake

import "time"

// Parts 拆解后的 ID
type Parts struct {
	ID        int64     `json:"id"`
	Timestamp int64     `json:"timestamp"`
	WorkerID  int64     `json:"worker_id"`
	Sequence  int64     `json:"sequence"`
	Time      time.Time `json:"time"`
}

// Parse 按给定 epoch 拆解 ID，Timestamp 为 Unix 毫秒
func Parse(id, epoch int64) Parts {
	ts := id>>timestampShift + epoch
	return Parts{
		ID:        id,
		Timestamp: ts,
		WorkerID:  id >> workerIDShift & MaxWorkerID,
		Sequence:  id & maxSequence,
		Time:      time.UnixMilli(ts).UTC(),
	}
}
