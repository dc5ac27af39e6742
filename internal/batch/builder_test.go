package batch

import "testing"

func TestThreadSpanBuilderNestedSpans(t *testing.T) {
	b := NewThreadSpanBuilder("proc1", "stream1")
	b.AppendBegin("t1", "outer", "f.go", "mod", 10, 1000)
	b.AppendBegin("t1", "inner", "f.go", "mod", 11, 1100)
	b.AppendEnd("t1", 1200) // closes inner
	b.AppendEnd("t1", 1300) // closes outer

	if b.NbRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", b.NbRows())
	}
	batch := b.Finish()
	rows := batch.Rows.([]ThreadSpanRow)
	if rows[0].Name != "outer" || rows[0].Depth != 1 {
		t.Fatalf("unexpected outer row %+v", rows[0])
	}
	if rows[1].Name != "inner" || rows[1].Depth != 2 {
		t.Fatalf("unexpected inner row %+v", rows[1])
	}
}

func TestThreadSpanBuilderCloseBlockClampsOpenSpans(t *testing.T) {
	b := NewThreadSpanBuilder("proc1", "stream1")
	b.AppendBegin("t1", "unterminated", "f.go", "mod", 1, 1000)
	b.CloseBlock(5000)

	if b.NbRows() != 1 {
		t.Fatalf("expected 1 clamped row, got %d", b.NbRows())
	}
	batch := b.Finish()
	rows := batch.Rows.([]ThreadSpanRow)
	if rows[0].EndTime != 5000 {
		t.Fatalf("expected end_time clamped to block end, got %d", rows[0].EndTime)
	}
	if rows[0].Depth != -1 {
		t.Fatalf("expected negative depth marker, got %d", rows[0].Depth)
	}
}

func TestThreadSpanBuilderEndWithoutBeginDiscarded(t *testing.T) {
	b := NewThreadSpanBuilder("proc1", "stream1")
	b.AppendEnd("t1", 1000)
	if b.NbRows() != 0 {
		t.Fatalf("expected end-without-begin to be discarded, got %d rows", b.NbRows())
	}
}

func TestConvertTicksMonotone(t *testing.T) {
	p := &Process{StartTicks: 0, StartTimeNS: 0, TSCFrequency: 1_000_000_000}
	var prev int64 = -1
	for ticks := int64(0); ticks < 1000; ticks += 37 {
		ns := p.ConvertTicks(ticks, 0)
		if ns < prev {
			t.Fatalf("tick conversion not monotone at ticks=%d: %d < %d", ticks, ns, prev)
		}
		prev = ns
	}
}

func TestConvertTicksEstimatesFrequency(t *testing.T) {
	p := &Process{
		StartTicks: 0, StartTimeNS: 0, TSCFrequency: 0,
		LastBlockEndTicks: 2_000_000_000, LastBlockEndTimeNS: 1_000_000_000, // 2 ticks/ns => 2GHz
	}
	ns := p.ConvertTicks(1_000_000_000, -1)
	if ns != 500_000_000 {
		t.Fatalf("expected estimated-frequency conversion, got %d", ns)
	}
}

func TestConvertTicksFallsBackWithoutFrequency(t *testing.T) {
	p := &Process{StartTicks: 0, StartTimeNS: 0, TSCFrequency: 0}
	ns := p.ConvertTicks(42, 999)
	if ns != 999 {
		t.Fatalf("expected fallback ns 999, got %d", ns)
	}
}
