package wipe

import (
	"context"

	"golang.org/x/time/rate"

	"securewipe/internal/storage"
)

const maxBurst = 64 << 20

// ThrottledWriter ограничивает скорость записи в канал
type ThrottledWriter struct {
	storage.Channel
	ctx     context.Context
	limiter *rate.Limiter
}

// NewThrottledWriter оборачивает ch; maxSpeedMBps <= 0 означает без ограничения
func NewThrottledWriter(ctx context.Context, ch storage.Channel, maxSpeedMBps float64) *ThrottledWriter {
	tw := &ThrottledWriter{Channel: ch, ctx: ctx}
	if maxSpeedMBps > 0 {
		bytesPerSec := maxSpeedMBps * 1024 * 1024
		burst := int(bytesPerSec)
		if burst < BlockSize {
			burst = BlockSize
		}
		if burst > maxBurst {
			burst = maxBurst
		}
		tw.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
	}
	return tw
}

// Write записывает данные с ограничением скорости
func (tw *ThrottledWriter) Write(data []byte) (int, error) {
	if tw.limiter == nil {
		return tw.Channel.Write(data)
	}

	written := 0
	for written < len(data) {
		chunk := data[written:]
		if len(chunk) > tw.limiter.Burst() {
			chunk = chunk[:tw.limiter.Burst()]
		}
		if err := tw.limiter.WaitN(tw.ctx, len(chunk)); err != nil {
			return written, err
		}
		n, err := tw.Channel.Write(chunk)
		written += n
		if err != nil || n < len(chunk) {
			return written, err
		}
	}
	return written, nil
}
