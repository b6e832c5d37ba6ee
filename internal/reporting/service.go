package reporting

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
)

const maxReportWindow = 366 * 24 * time.Hour

type projectionReader interface {
	RevenueByChannel(ctx context.Context, from, to time.Time) ([]ChannelRevenueRow, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProductRow, error)
	ChurnByMonth(ctx context.Context, from, to time.Time) ([]ChurnRow, error)
	CustomerSegments(ctx context.Context, asOf time.Time) ([]CustomerSegmentRow, error)
	Overview(ctx context.Context) (*SubscriptionOverview, error)
}

// Service exposes the admin reporting projections.
type Service interface {
	RevenueByChannel(ctx context.Context, from, to time.Time) ([]ChannelRevenueRow, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProductRow, error)
	ChurnByMonth(ctx context.Context, from, to time.Time) ([]ChurnRow, error)
	CustomerSegments(ctx context.Context, asOf time.Time) ([]CustomerSegmentRow, error)
	SubscriptionOverview(ctx context.Context) (*SubscriptionOverview, error)
}

type service struct {
	reader projectionReader
}

// NewService builds the reporting service.
func NewService(reader projectionReader) (Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("projection reader required")
	}
	return &service{reader: reader}, nil
}

func (s *service) RevenueByChannel(ctx context.Context, from, to time.Time) ([]ChannelRevenueRow, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	rows, err := s.reader.RevenueByChannel(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to compute revenue by channel")
	}
	return rows, nil
}

func (s *service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProductRow, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	rows, err := s.reader.TopProducts(ctx, from, to, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to compute top products")
	}
	return rows, nil
}

func (s *service) ChurnByMonth(ctx context.Context, from, to time.Time) ([]ChurnRow, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	rows, err := s.reader.ChurnByMonth(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to compute churn")
	}
	return rows, nil
}

func (s *service) CustomerSegments(ctx context.Context, asOf time.Time) ([]CustomerSegmentRow, error) {
	if asOf.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference date is required")
	}
	rows, err := s.reader.CustomerSegments(ctx, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to compute customer segments")
	}
	return rows, nil
}

func (s *service) SubscriptionOverview(ctx context.Context) (*SubscriptionOverview, error) {
	overview, err := s.reader.Overview(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to compute subscription overview")
	}
	return overview, nil
}

func validateWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "report window is required")
	}
	if !to.After(from) {
		return pkgerrors.New(pkgerrors.CodeValidation, "report window end must be after start")
	}
	if to.Sub(from) > maxReportWindow {
		return pkgerrors.New(pkgerrors.CodeValidation, "report window cannot exceed one year")
	}
	return nil
}
