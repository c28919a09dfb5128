package core

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// recordingObserver counts events for assertions.
type recordingObserver struct {
	NopObserver

	mu       sync.Mutex
	outcomes map[string]int
	exported map[Format]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{outcomes: map[string]int{}, exported: map[Format]int{}}
}

func (o *recordingObserver) FileProcessed(_ Format, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

func (o *recordingObserver) Exported(f Format, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exported[f]++
}

func TestService_Run_DedupeThenFill(t *testing.T) {
	svc := NewService(ServiceConfig{})

	results, err := svc.Run(context.Background(), []FileJob{{
		Name: "data.csv",
		Data: []byte("name,age\nAlice,30\nBob,\nAlice,30\n"),
		Options: Options{
			Clean:   CleanOptions{Enabled: true, RemoveDuplicates: true, FillMissing: true},
			Convert: true,
			Format:  FormatCSV,
		},
	}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := results[0]
	if r.Err != nil {
		t.Fatalf("file error = %v", r.Err)
	}
	want := [][]string{{"Alice", "30"}, {"Bob", "30"}}
	if got := r.Dataset.Records(); !reflect.DeepEqual(got, want) {
		t.Errorf("Records = %q, want %q", got, want)
	}
	if r.Report.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", r.Report.DuplicatesRemoved)
	}
	if string(r.Export.Data) != "name,age\nAlice,30\nBob,30\n" {
		t.Errorf("export = %q", r.Export.Data)
	}
	if r.Export.FileName != "data.csv" {
		t.Errorf("FileName = %q", r.Export.FileName)
	}

	// The preview is taken before cleaning.
	if r.Preview.TotalRows != 3 {
		t.Errorf("Preview.TotalRows = %d, want 3", r.Preview.TotalRows)
	}
}

func TestService_Run_ContinuesAfterFailure(t *testing.T) {
	obs := newRecordingObserver()
	svc := NewService(ServiceConfig{Observer: obs})

	results, err := svc.Run(context.Background(), []FileJob{
		{Name: "notes.txt", Data: []byte("hello")},
		{Name: "bad.csv", Data: []byte("a\n1,2\n")},
		{Name: "good.csv", Data: []byte("a,b\n1,2\n"), Options: Options{Convert: true, Format: FormatXLSX}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	if !errors.Is(results[0].Err, ErrUnsupportedFormat) {
		t.Errorf("results[0].Err = %v, want ErrUnsupportedFormat", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrInvalidCSV) {
		t.Errorf("results[1].Err = %v, want ErrInvalidCSV", results[1].Err)
	}
	if results[2].Err != nil {
		t.Fatalf("results[2].Err = %v", results[2].Err)
	}
	if results[2].Export.FileName != "good.xlsx" {
		t.Errorf("FileName = %q, want good.xlsx", results[2].Export.FileName)
	}
	if results[0].Size != 5 {
		t.Errorf("Size = %d, want 5", results[0].Size)
	}

	summary := Summarize(results)
	if summary.Processed != 1 || summary.Failed != 2 {
		t.Errorf("summary = %+v, want 1 processed, 2 failed", summary)
	}
	if obs.outcomes[OutcomeFailed] != 2 || obs.outcomes[OutcomeSuccess] != 1 {
		t.Errorf("observer outcomes = %v", obs.outcomes)
	}
	if obs.exported[FormatXLSX] != 1 {
		t.Errorf("observer exports = %v", obs.exported)
	}
}

func TestService_Run_ProjectionAndChart(t *testing.T) {
	svc := NewService(ServiceConfig{})

	results, _ := svc.Run(context.Background(), []FileJob{{
		Name: "m.csv",
		Data: []byte("name,a,b,c\nx,1,2,3\ny,4,5,6\n"),
		Options: Options{
			Columns:   []string{"c", "name", "a"},
			ShowChart: true,
		},
	}})

	r := results[0]
	if r.Err != nil {
		t.Fatalf("file error = %v", r.Err)
	}
	if !reflect.DeepEqual(r.AllColumns, []string{"name", "a", "b", "c"}) {
		t.Errorf("AllColumns = %q", r.AllColumns)
	}
	if !reflect.DeepEqual(r.Dataset.ColumnNames(), []string{"c", "name", "a"}) {
		t.Errorf("ColumnNames = %q", r.Dataset.ColumnNames())
	}
	if r.Chart == nil || len(r.Chart.Series) != 2 || r.Chart.Series[0].Name != "c" {
		t.Errorf("Chart = %+v, want series [c a]", r.Chart)
	}
	if r.Export != nil {
		t.Error("Export should be nil when Convert is off")
	}
}

func TestService_Run_UnknownColumn(t *testing.T) {
	svc := NewService(ServiceConfig{})

	results, _ := svc.Run(context.Background(), []FileJob{{
		Name:    "m.csv",
		Data:    []byte("a\n1\n"),
		Options: Options{Columns: []string{"nope"}},
	}})

	if !errors.Is(results[0].Err, ErrColumnNotFound) {
		t.Errorf("Err = %v, want ErrColumnNotFound", results[0].Err)
	}
	if results[0].Preview == nil {
		t.Error("Preview should be kept when projection fails")
	}
}

func TestService_Run_Cancelled(t *testing.T) {
	svc := NewService(ServiceConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, []FileJob{{Name: "a.csv", Data: []byte("a\n1\n")}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestService_Run_Busy(t *testing.T) {
	svc := NewService(ServiceConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})

	if !svc.Limiter().TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer svc.Limiter().Release()

	_, err := svc.Run(context.Background(), nil)
	if !errors.Is(err, ErrTooManyRuns) {
		t.Errorf("Run() error = %v, want ErrTooManyRuns", err)
	}
}

func TestService_RenderChart(t *testing.T) {
	svc := NewService(ServiceConfig{Chart: ChartOptions{Width: 200, Height: 120}})
	out, err := svc.RenderChart(BuildChart(mustLoadCSV(t, "a\n1\n2\n")), "a.csv")
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	if len(out) == 0 {
		t.Error("RenderChart() returned no bytes")
	}
}
