package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/service"
)

// Maintenance runs the one-off operator batches. Each batch writes the items
// it could not process to a JSON file so the run can be repeated for them.
type Maintenance struct {
	visa service.VisaService
}

func NewMaintenance(visa service.VisaService) *Maintenance {
	return &Maintenance{visa: visa}
}

// RenewEmails renews the visa of every listed holder.
func (m *Maintenance) RenewEmails(ctx context.Context, emails []string, failuresPath string) (*service.BatchResult, error) {
	res, err := m.visa.RenewByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	logger.Info("Renewal batch finished", "processed", res.Processed, "failed", len(res.Failed))
	return res, writeFailures(failuresPath, res.Failed)
}

// ExtendExpiry pushes every active visa's expiry back by days.
func (m *Maintenance) ExtendExpiry(ctx context.Context, days int, failuresPath string) (*service.BatchResult, error) {
	res, err := m.visa.ExtendActiveExpiry(ctx, days)
	if err != nil {
		return nil, err
	}
	logger.Info("Expiry extension finished", "days", days, "processed", res.Processed, "failed", len(res.Failed))
	return res, writeFailures(failuresPath, res.Failed)
}

// ReconcileMints resumes interrupted mints once. Mints whose gateway outcome is
// unknown land in the failures file for manual follow-up.
func (m *Maintenance) ReconcileMints(ctx context.Context, failuresPath string) (*service.BatchResult, error) {
	res, err := m.visa.ReconcileMints(ctx)
	if res == nil {
		return nil, err
	}
	logger.Info("Mint reconciliation finished", "processed", res.Processed, "failed", len(res.Failed))
	if werr := writeFailures(failuresPath, res.Failed); werr != nil {
		logger.Error("Failed to write failures file", "path", failuresPath, "error", werr)
	}
	return res, err
}

// UpdateEarnings applies an earnings file.
func (m *Maintenance) UpdateEarnings(ctx context.Context, updates []service.EarningsUpdate, failuresPath string) (*service.EarningsResult, error) {
	res, err := m.visa.UpdateEarnings(ctx, updates)
	if res == nil {
		return nil, err
	}
	if werr := writeFailures(failuresPath, res.FailedUpdates); werr != nil {
		logger.Error("Failed to write failures file", "path", failuresPath, "error", werr)
	}
	return res, err
}

// LoadEmails reads a JSON array of email addresses.
func LoadEmails(path string) ([]string, error) {
	var emails []string
	if err := readJSON(path, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// LoadEarnings reads a JSON array of {wallet, earnings} objects.
func LoadEarnings(path string) ([]service.EarningsUpdate, error) {
	var updates []service.EarningsUpdate
	if err := readJSON(path, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// writeFailures stores failed items at path. Nothing is written for an empty
// path or an empty list.
func writeFailures[T any](path string, failed []T) error {
	if path == "" || len(failed) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(failed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Warn("Failed items written", "path", path, "count", len(failed))
	return nil
}
