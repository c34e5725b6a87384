package replsup

import (
	"testing"
)

// BenchmarkCellLoad measures the cost of reading the current lifecycle
// state, the hot path of every delegating operation
func BenchmarkCellLoad(b *testing.B) {
	c := newCell(freshState())

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = c.load()
	}
}

// BenchmarkCellCAS measures an uncontended transition round trip
func BenchmarkCellCAS(b *testing.B) {
	a := freshState()
	z := startingState(0)
	c := newCell(a)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cur := c.load()
		if cur == a {
			c.compareAndSwap(a, z)
		} else {
			c.compareAndSwap(z, a)
		}
	}
}

// BenchmarkStateQuery measures State on a running supervisor
func BenchmarkStateQuery(b *testing.B) {
	ml := &MockLauncher{}
	s := New(LaunchSpec{Program: "java", MainClass: "worker.Main"}, WithLauncher(ml))
	s.Start()
	ml.Connect(&MockWorker{})

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = s.State()
	}
}

// BenchmarkEval measures the delegation path through a live handle
func BenchmarkEval(b *testing.B) {
	ml := &MockLauncher{}
	s := New(LaunchSpec{Program: "java", MainClass: "worker.Main"}, WithLauncher(ml))
	s.SetInteractionListener(NoopInteractionListener{})
	s.Start()
	ml.Connect(&MockWorker{})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		s.Eval("2+2")
	}
}

// BenchmarkStateQueryParallel measures contended reads of the state cell
func BenchmarkStateQueryParallel(b *testing.B) {
	ml := &MockLauncher{}
	s := New(LaunchSpec{Program: "java", MainClass: "worker.Main"}, WithLauncher(ml))
	s.Start()
	ml.Connect(&MockWorker{})

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = s.State()
		}
	})
}
