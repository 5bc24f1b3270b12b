package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"converzia_backend/internal/qualification/domain"
)

func TestSummarizerRunsConcurrently(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
		both     = make(chan struct{})
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		if inFlight == 2 {
			close(both)
		}
		mu.Unlock()

		select {
		case <-both:
		case <-time.After(2 * time.Second):
		}

		mu.Lock()
		inFlight--
		mu.Unlock()
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Busca 2 dormitorios en Palermo."}}]}`))
	}))
	defer srv.Close()

	summarizer, err := NewSummarizer(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new summarizer: %v", err)
	}
	history := []domain.Message{{Direction: domain.DirectionInbound, Content: "busco en Palermo"}}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := summarizer.Summarize(context.Background(), history)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if peak != 2 {
		t.Fatalf("expected both summaries in flight together, peak was %d", peak)
	}
}
