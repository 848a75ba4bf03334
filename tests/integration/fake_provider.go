package integration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cointracker/internal/core/ports"
	"cointracker/pkg/apperror"
)

// fakeProvider serves a fixed transaction history in pages, standing in
// for the Blockchair API. failures sets how many leading calls return a
// transient error; hold, when non-nil, blocks FetchPage so tests can
// observe a running job.
type fakeProvider struct {
	mu       sync.Mutex
	history  []ports.TxRecord
	pageSize int
	failures int32
	hold     chan struct{}

	infoCalls atomic.Int32
	pageCalls atomic.Int32
}

func newFakeProvider(pageSize int, history []ports.TxRecord) *fakeProvider {
	return &fakeProvider{history: history, pageSize: pageSize}
}

// makeHistory builds n confirmed records with ascending timestamps.
// Values alternate: +1000 sats on even indexes, -400 on odd. TxIDs are
// zero-padded so lexical order matches creation order.
func makeHistory(n int) []ports.TxRecord {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]ports.TxRecord, 0, n)
	for i := 0; i < n; i++ {
		h := int64(840000 + i)
		ts := base.Add(time.Duration(i) * time.Hour)
		value := int64(1000)
		if i%2 == 1 {
			value = -400
		}
		recs = append(recs, ports.TxRecord{
			TxID:        fmt.Sprintf("tx%06d", i),
			BlockHeight: &h,
			Timestamp:   &ts,
			Value:       value,
		})
	}
	return recs
}

func signedSum(recs []ports.TxRecord) int64 {
	var sum int64
	for _, r := range recs {
		sum += r.Value
	}
	return sum
}

func (p *fakeProvider) takeFailure() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return true
	}
	return false
}

func (p *fakeProvider) FetchAddressInfo(ctx context.Context, address string) (*ports.AddressInfo, error) {
	p.infoCalls.Add(1)
	if p.takeFailure() {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("injected failure"))
	}
	return &ports.AddressInfo{
		Balance:          signedSum(p.history),
		TransactionCount: int64(len(p.history)),
	}, nil
}

func (p *fakeProvider) FetchPage(ctx context.Context, address string, cursor *ports.Cursor) (*ports.TxPage, error) {
	p.pageCalls.Add(1)
	if p.hold != nil {
		select {
		case <-p.hold:
		case <-ctx.Done():
			return nil, apperror.ErrProviderUnavailable(ctx.Err())
		}
	}
	if p.takeFailure() {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("injected failure"))
	}

	var offset int64
	if cursor != nil {
		offset = cursor.Offset
	}
	if offset >= int64(len(p.history)) {
		return &ports.TxPage{}, nil
	}

	end := offset + int64(p.pageSize)
	if end > int64(len(p.history)) {
		end = int64(len(p.history))
	}

	page := &ports.TxPage{Transactions: p.history[offset:end]}
	if int(end-offset) == p.pageSize && end < int64(len(p.history)) {
		page.NextCursor = &ports.Cursor{Offset: end}
	}
	return page, nil
}
