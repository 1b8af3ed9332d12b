package db

import (
	"fmt"
	"time"
)

// UsageStats represents token and cost statistics over the audit log
type UsageStats struct {
	TotalTokens    int64                           `json:"total_tokens"`
	TotalCost      float64                         `json:"total_cost"`
	TotalRequests  int64                           `json:"total_requests"`
	FailedRequests int64                           `json:"failed_requests"`
	ProviderStats  map[string]*ProviderUsageStats  `json:"provider_stats"`
	ModelStats     map[string]*ModelUsageStats     `json:"model_stats"`
	OperationStats map[string]*OperationUsageStats `json:"operation_stats"`
	DailyStats     []*DailyUsageStats              `json:"daily_stats"`
}

// ProviderUsageStats represents usage statistics for a specific provider
type ProviderUsageStats struct {
	Provider     string  `json:"provider"`
	TotalTokens  int64   `json:"total_tokens"`
	RequestCount int64   `json:"request_count"`
	TotalCost    float64 `json:"total_cost"` // in USD
}

// ModelUsageStats represents usage statistics for a specific model
type ModelUsageStats struct {
	Model        string  `json:"model"`
	Provider     string  `json:"provider"`
	TotalTokens  int64   `json:"total_tokens"`
	RequestCount int64   `json:"request_count"`
	TotalCost    float64 `json:"total_cost"` // in USD
}

// OperationUsageStats represents usage statistics for one operation kind
type OperationUsageStats struct {
	Operation     string  `json:"operation"`
	RequestCount  int64   `json:"request_count"`
	SuccessCount  int64   `json:"success_count"`
	TotalCost     float64 `json:"total_cost"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// DailyUsageStats represents daily usage statistics
type DailyUsageStats struct {
	Date         time.Time `json:"date"`
	TotalTokens  int64     `json:"total_tokens"`
	RequestCount int64     `json:"request_count"`
	TotalCost    float64   `json:"total_cost"`
}

// GetUsageStats returns usage statistics between startDate and endDate.
// Costs are the ones recorded at generation time.
func (db *DB) GetUsageStats(startDate, endDate time.Time) (*UsageStats, error) {
	stats := &UsageStats{
		ProviderStats:  make(map[string]*ProviderUsageStats),
		ModelStats:     make(map[string]*ModelUsageStats),
		OperationStats: make(map[string]*OperationUsageStats),
	}
	startDate, endDate = startDate.UTC(), endDate.UTC()

	// Get totals
	query := `
		SELECT
			COALESCE(SUM(tokens_used), 0) as total_tokens,
			COALESCE(SUM(cost), 0) as total_cost,
			COUNT(*) as total_requests,
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0) as failed
		FROM audit_logs
		WHERE created_at >= ? AND created_at <= ?
	`
	err := db.conn.QueryRow(query, startDate, endDate).Scan(&stats.TotalTokens, &stats.TotalCost, &stats.TotalRequests, &stats.FailedRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to get total stats: %w", err)
	}

	// Get provider statistics
	providerQuery := `
		SELECT
			provider,
			COALESCE(SUM(tokens_used), 0) as total_tokens,
			COUNT(*) as request_count,
			COALESCE(SUM(cost), 0) as total_cost
		FROM audit_logs
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY provider
		ORDER BY total_tokens DESC
	`
	rows, err := db.conn.Query(providerQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ps ProviderUsageStats
		if err := rows.Scan(&ps.Provider, &ps.TotalTokens, &ps.RequestCount, &ps.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan provider stats: %w", err)
		}
		stats.ProviderStats[ps.Provider] = &ps
	}

	// Get model statistics
	modelQuery := `
		SELECT
			provider,
			model,
			COALESCE(SUM(tokens_used), 0) as total_tokens,
			COUNT(*) as request_count,
			COALESCE(SUM(cost), 0) as total_cost
		FROM audit_logs
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY provider, model
		ORDER BY total_tokens DESC
	`
	rows, err = db.conn.Query(modelQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get model stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ms ModelUsageStats
		if err := rows.Scan(&ms.Provider, &ms.Model, &ms.TotalTokens, &ms.RequestCount, &ms.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan model stats: %w", err)
		}
		stats.ModelStats[ms.Provider+":"+ms.Model] = &ms
	}

	// Get operation statistics
	operationQuery := `
		SELECT
			operation,
			COUNT(*) as request_count,
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0) as success_count,
			COALESCE(SUM(cost), 0) as total_cost,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM audit_logs
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY operation
		ORDER BY operation ASC
	`
	rows, err = db.conn.Query(operationQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ops OperationUsageStats
		if err := rows.Scan(&ops.Operation, &ops.RequestCount, &ops.SuccessCount, &ops.TotalCost, &ops.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan operation stats: %w", err)
		}
		stats.OperationStats[ops.Operation] = &ops
	}

	// Get daily statistics
	dailyQuery := `
		SELECT
			DATE(created_at) as date,
			COALESCE(SUM(tokens_used), 0) as total_tokens,
			COUNT(*) as request_count,
			COALESCE(SUM(cost), 0) as total_cost
		FROM audit_logs
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY DATE(created_at)
		ORDER BY date ASC
	`
	rows, err = db.conn.Query(dailyQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dateStr string
		var ds DailyUsageStats
		if err := rows.Scan(&dateStr, &ds.TotalTokens, &ds.RequestCount, &ds.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}

		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		ds.Date = date
		stats.DailyStats = append(stats.DailyStats, &ds)
	}

	return stats, nil
}

// GetTopModels returns the top N models by recorded cost
func (db *DB) GetTopModels(limit int, startDate, endDate time.Time) ([]*ModelUsageStats, error) {
	query := `
		SELECT
			provider,
			model,
			COALESCE(SUM(tokens_used), 0) as total_tokens,
			COUNT(*) as request_count,
			COALESCE(SUM(cost), 0) as total_cost
		FROM audit_logs
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY provider, model
		ORDER BY total_cost DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(query, startDate.UTC(), endDate.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top models: %w", err)
	}
	defer rows.Close()

	var models []*ModelUsageStats
	for rows.Next() {
		var ms ModelUsageStats
		if err := rows.Scan(&ms.Provider, &ms.Model, &ms.TotalTokens, &ms.RequestCount, &ms.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan model stats: %w", err)
		}
		models = append(models, &ms)
	}

	return models, nil
}
