package processor

import (
	"context"
	"sync"

	"fjacquet/fueltrack/internal/models"
)

// vehicleResult is the output of one vehicle scan, tagged with its input position so
// results can be merged in a stable order.
type vehicleResult struct {
	index     int
	processed []models.ProcessedTransaction
	anomalies []models.Anomaly
}

// scanAll runs scan over every vehicle group with up to workers goroutines and
// returns the results in group order.
func scanAll(ctx context.Context, groups [][]models.Transaction, workers int,
	scan func([]models.Transaction) ([]models.ProcessedTransaction, []models.Anomaly)) ([]vehicleResult, error) {

	results := make([]vehicleResult, len(groups))

	// Small fleets and a single worker are scanned in place.
	if workers <= 1 || len(groups) < 2 {
		for i, g := range groups {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			processed, anomalies := scan(g)
			results[i] = vehicleResult{index: i, processed: processed, anomalies: anomalies}
		}
		return results, nil
	}

	if workers > len(groups) {
		workers = len(groups)
	}

	jobs := make(chan int, workers)
	out := make(chan vehicleResult, len(groups))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				processed, anomalies := scan(groups[i])
				out <- vehicleResult{index: i, processed: processed, anomalies: anomalies}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range groups {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	for r := range out {
		results[r.index] = r
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
