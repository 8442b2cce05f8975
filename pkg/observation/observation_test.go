package observation

import (
	"testing"
)

func TestColdStart(t *testing.T) {
	w := ColdStart()

	if w.Len() != WindowSize {
		t.Fatalf("got %d observations, want %d", w.Len(), WindowSize)
	}

	for i, o := range w.Observations() {
		if o.Start != ColdStartStart || o.End != ColdStartEnd {
			t.Fatalf("observation %d = %+v, want {15 45}", i, o)
		}
	}
}

func TestNewWindow_TruncatesToWindowSize(t *testing.T) {
	obs := make([]Observation, WindowSize+30)
	for i := range obs {
		obs[i] = Observation{Start: float64(i), End: float64(i) + 1}
	}

	w := NewWindow(obs)

	if w.Len() != WindowSize {
		t.Fatalf("got %d observations, want %d", w.Len(), WindowSize)
	}

	// The most recent WindowSize entries survive.
	first := w.Observations()[0]
	if first.Start != 30 {
		t.Errorf("oldest surviving observation starts at %v, want 30", first.Start)
	}
}

func TestWindow_AppendEvictsOldestFirst(t *testing.T) {
	w := Window{}
	for i := 0; i < WindowSize+1; i++ {
		w = w.Append(Observation{Start: float64(i), End: float64(i) + 1})
	}

	if w.Len() != WindowSize {
		t.Fatalf("got %d observations after %d appends, want %d", w.Len(), WindowSize+1, WindowSize)
	}

	obs := w.Observations()
	if obs[0].Start != 1 {
		t.Errorf("oldest observation starts at %v, want 1 (entry 0 evicted)", obs[0].Start)
	}

	w = w.Append(Observation{Start: 999, End: 1000})
	obs = w.Observations()
	if obs[0].Start != 2 {
		t.Errorf("oldest observation starts at %v, want 2 (entry 1 evicted next)", obs[0].Start)
	}

	last, ok := w.Last()
	if !ok || last.Start != 999 {
		t.Errorf("last observation = %+v, want {999 1000}", last)
	}
}

func TestWindow_AppendDoesNotMutateOriginal(t *testing.T) {
	w1 := NewWindow([]Observation{{Start: 1, End: 2}})
	w2 := w1.Append(Observation{Start: 3, End: 4})

	if w1.Len() != 1 {
		t.Errorf("original window length changed to %d, want 1", w1.Len())
	}
	if w2.Len() != 2 {
		t.Errorf("new window length = %d, want 2", w2.Len())
	}
}

func TestWindow_LastEmpty(t *testing.T) {
	w := Window{}
	if _, ok := w.Last(); ok {
		t.Error("Last on empty window reported ok")
	}
}
