package orderflow

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bazaar/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalTargets(t *testing.T) {
	tests := []struct {
		from     model.OrderStatus
		expected []model.OrderStatus
	}{
		{model.StatusNew, []model.OrderStatus{model.StatusConfirmed, model.StatusCancelled}},
		{model.StatusConfirmed, []model.OrderStatus{model.StatusPaid, model.StatusCancelled}},
		{model.StatusPaid, []model.OrderStatus{model.StatusShipped, model.StatusCancelled}},
		{model.StatusShipped, []model.OrderStatus{model.StatusDelivered}},
		{model.StatusDelivered, []model.OrderStatus{model.StatusCompleted}},
		{model.StatusCompleted, nil},
		{model.StatusCancelled, nil},
		{model.StatusDispute, []model.OrderStatus{model.StatusCancelled}},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got := LegalTargets(tt.from)
			assert.ElementsMatch(t, tt.expected, got)

			for _, to := range model.AllStatuses {
				assert.Equal(t, containsStatus(tt.expected, to), CanTransition(ActorSeller, tt.from, to),
					"%s -> %s", tt.from, to)
			}
		})
	}
}

func TestLegalTargets_ReturnsCopy(t *testing.T) {
	targets := LegalTargets(model.StatusNew)
	targets[0] = model.StatusShipped

	assert.Equal(t, model.StatusConfirmed, LegalTargets(model.StatusNew)[0])
}

func TestApply_IllegalFromNew(t *testing.T) {
	o := &model.Order{Status: model.StatusNew}

	err := Apply(o, model.StatusShipped, ActorSeller, time.Now())

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrIllegalTransition)
	de, ok := model.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, model.KindTransition, de.Kind)
	assert.Equal(t, model.StatusNew, o.Status)
}

func TestApply_TerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []model.OrderStatus{model.StatusCompleted, model.StatusCancelled} {
		for _, to := range model.AllStatuses {
			for _, actor := range []Actor{ActorSeller, ActorBuyer, ActorSystem} {
				o := &model.Order{Status: terminal}
				err := Apply(o, to, actor, time.Now())

				assert.ErrorIs(t, err, model.ErrIllegalTransition, "%s: %s -> %s", actor, terminal, to)
				assert.Equal(t, terminal, o.Status)
			}
		}
	}
}

func TestApply_Dispute(t *testing.T) {
	o := &model.Order{Status: model.StatusDispute}
	assert.ErrorIs(t, Apply(o, model.StatusConfirmed, ActorSeller, time.Now()), model.ErrIllegalTransition)

	for _, to := range model.AllStatuses {
		if to == model.StatusCancelled {
			continue
		}
		assert.False(t, CanTransition(ActorSeller, model.StatusDispute, to))
	}

	require.NoError(t, Apply(o, model.StatusCancelled, ActorSeller, time.Now()))
	assert.Equal(t, model.StatusCancelled, o.Status)
	assert.NotNil(t, o.CancelledAt)
}

func TestApply_DisputeNotReachableBySellerOrBuyer(t *testing.T) {
	for _, from := range model.AllStatuses {
		assert.False(t, CanTransition(ActorSeller, from, model.StatusDispute), "seller from %s", from)
		assert.False(t, CanTransition(ActorBuyer, from, model.StatusDispute), "buyer from %s", from)
	}

	o := &model.Order{Status: model.StatusShipped}
	require.NoError(t, Apply(o, model.StatusDispute, ActorSystem, time.Now()))
	assert.Equal(t, model.StatusDispute, o.Status)
	assert.False(t, CanTransition(ActorSystem, model.StatusNew, model.StatusDispute))
}

func TestApply_BuyerCancellation(t *testing.T) {
	tests := []struct {
		from    model.OrderStatus
		allowed bool
	}{
		{model.StatusNew, true},
		{model.StatusConfirmed, true},
		{model.StatusPaid, false},
		{model.StatusShipped, false},
		{model.StatusDelivered, false},
		{model.StatusDispute, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			o := &model.Order{Status: tt.from}
			err := Apply(o, model.StatusCancelled, ActorBuyer, time.Now())
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, model.StatusCancelled, o.Status)
			} else {
				assert.ErrorIs(t, err, model.ErrIllegalTransition)
			}
		})
	}

	// a buyer cannot confirm their own order
	assert.False(t, CanTransition(ActorBuyer, model.StatusNew, model.StatusConfirmed))
}

func TestApply_FullLifecycleTimestamps(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	o := &model.Order{Status: model.StatusNew}

	steps := []model.OrderStatus{
		model.StatusConfirmed,
		model.StatusPaid,
		model.StatusShipped,
		model.StatusDelivered,
		model.StatusCompleted,
	}
	for i, to := range steps {
		require.NoError(t, Apply(o, to, ActorSeller, base.Add(time.Duration(i)*time.Hour)))
	}

	assert.Equal(t, model.StatusCompleted, o.Status)
	require.NotNil(t, o.ConfirmedAt)
	require.NotNil(t, o.ShippedAt)
	require.NotNil(t, o.DeliveredAt)
	require.NotNil(t, o.CompletedAt)
	assert.Nil(t, o.CancelledAt)
	assert.Equal(t, base, *o.ConfirmedAt)
	assert.Equal(t, base.Add(2*time.Hour), *o.ShippedAt)
	assert.Equal(t, base.Add(4*time.Hour), *o.CompletedAt)
	assert.Equal(t, base.Add(4*time.Hour), o.UpdatedAt)
}

func TestApply_TimestampSetOnce(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o := &model.Order{Status: model.StatusConfirmed, ConfirmedAt: &first}

	// force a second arrival at confirmed
	o.Status = model.StatusNew
	require.NoError(t, Apply(o, model.StatusConfirmed, ActorSeller, first.Add(time.Hour)))
	assert.Equal(t, first, *o.ConfirmedAt)
}

func TestApply_RepeatedRequestRejected(t *testing.T) {
	o := &model.Order{Status: model.StatusNew}

	require.NoError(t, Apply(o, model.StatusConfirmed, ActorSeller, time.Now()))
	assert.ErrorIs(t, Apply(o, model.StatusConfirmed, ActorSeller, time.Now()), model.ErrIllegalTransition)
}

func TestInFlight(t *testing.T) {
	f := NewInFlight()

	release, err := f.Begin(7)
	require.NoError(t, err)
	assert.True(t, f.Updating(7))

	_, err = f.Begin(7)
	assert.ErrorIs(t, err, model.ErrTransitionInFlight)

	other, err := f.Begin(8)
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, f.Updating(7))

	again, err := f.Begin(7)
	require.NoError(t, err)
	again()
}

func TestInFlight_ConcurrentBegin(t *testing.T) {
	f := NewInFlight()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := f.Begin(42); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func containsStatus(list []model.OrderStatus, s model.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
