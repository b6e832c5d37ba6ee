package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
)

type stubProjectionReader struct {
	revenue  []ChannelRevenueRow
	products []TopProductRow
	churn    []ChurnRow
	segments []CustomerSegmentRow
	overview *SubscriptionOverview
	err      error
}

func (s *stubProjectionReader) RevenueByChannel(context.Context, time.Time, time.Time) ([]ChannelRevenueRow, error) {
	return s.revenue, s.err
}

func (s *stubProjectionReader) TopProducts(context.Context, time.Time, time.Time, int) ([]TopProductRow, error) {
	return s.products, s.err
}

func (s *stubProjectionReader) ChurnByMonth(context.Context, time.Time, time.Time) ([]ChurnRow, error) {
	return s.churn, s.err
}

func (s *stubProjectionReader) CustomerSegments(context.Context, time.Time) ([]CustomerSegmentRow, error) {
	return s.segments, s.err
}

func (s *stubProjectionReader) Overview(context.Context) (*SubscriptionOverview, error) {
	return s.overview, s.err
}

func TestServiceRejectsInvertedWindow(t *testing.T) {
	svc, err := NewService(&stubProjectionReader{})
	require.NoError(t, err)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.RevenueByChannel(context.Background(), from, from.AddDate(0, -1, 0))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestServiceRejectsOversizedWindow(t *testing.T) {
	svc, err := NewService(&stubProjectionReader{})
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.ChurnByMonth(context.Background(), from, from.AddDate(2, 0, 0))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestServiceRejectsZeroReferenceDate(t *testing.T) {
	svc, err := NewService(&stubProjectionReader{})
	require.NoError(t, err)

	_, err = svc.CustomerSegments(context.Background(), time.Time{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestServiceWrapsReaderFailure(t *testing.T) {
	svc, err := NewService(&stubProjectionReader{err: context.DeadlineExceeded})
	require.NoError(t, err)

	_, err = svc.SubscriptionOverview(context.Background())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}
