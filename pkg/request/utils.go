package request

import "time"

// IncrementPause возвращает функцию, которая увеличивает паузу в factor раз,
// но не меньше minPause и не больше maxPause.
func IncrementPause(factor float64, minPause, maxPause time.Duration) func(currentPause time.Duration) time.Duration {
	return func(currentPause time.Duration) time.Duration {
		newPause := time.Duration(float64(currentPause) * factor)
		if newPause < minPause {
			return minPause
		}
		if newPause > maxPause {
			return maxPause
		}
		return newPause
	}
}
