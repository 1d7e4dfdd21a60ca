package pairfinder

import "sync"

// evaluateParallel fans the per-pair gate evaluation out to a bounded
// worker pool (spec.md §5: "within one formation window, per-pair
// ADF/OLS/half-life computations are independent and may be fanned
// out"), gathering results back in submission order so the admitted
// set is reproducible regardless of goroutine scheduling.
func evaluateParallel(candidates []candidatePair, logPrices map[string][]float64, p Params) []PairInfo {
	type indexed struct {
		idx  int
		info PairInfo
		ok   bool
	}

	jobs := make(chan int)
	out := make(chan indexed, len(candidates))

	workers := p.Workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				c := candidates[idx]
				info, ok := evaluatePair(c.s1, c.s2, logPrices[c.s1], logPrices[c.s2], p)
				out <- indexed{idx: idx, info: info, ok: ok}
			}
		}()
	}

	go func() {
		for i := range candidates {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	gathered := make([]indexed, 0, len(candidates))
	for r := range out {
		gathered = append(gathered, r)
	}

	// Restore submission order (candidates is already lexicographic;
	// channel delivery order is not) before filtering admitted pairs.
	byIdx := make([]indexed, len(candidates))
	for _, r := range gathered {
		byIdx[r.idx] = r
	}

	results := make([]PairInfo, 0, len(candidates))
	for _, r := range byIdx {
		if r.ok {
			results = append(results, r.info)
		}
	}
	return results
}
