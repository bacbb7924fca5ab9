package wiki

import (
	"context"
	"net/http"
	"testing"

	"github.com/olgasafonova/mediawiki-export/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestSpans_ListAndFetch(t *testing.T) {
	recorder := recordSpans(t)

	server := mockMediaWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("list") == "allpages" {
			writeJSON(t, w, allPagesBody("", "Archer"))
			return
		}
		writeJSON(t, w, revisionsBody("7", "Archer", "Archer text"))
	})
	client := createMockClient(t, server)

	if _, err := client.ListAllTitles(context.Background()); err != nil {
		t.Fatalf("ListAllTitles: %v", err)
	}
	client.FetchContent(context.Background(), "Archer")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name() != "wiki.list_titles" || spanAttr(spans[0], tracing.AttrAction) != ActionAllPages {
		t.Errorf("first span = %s %v", spans[0].Name(), spans[0].Attributes())
	}
	if spans[1].Name() != "wiki.fetch_content" || spanAttr(spans[1], tracing.AttrPageTitle) != "Archer" {
		t.Errorf("second span = %s %v", spans[1].Name(), spans[1].Attributes())
	}
}

func TestSpans_ParseErrorMarksListingFailed(t *testing.T) {
	recorder := recordSpans(t)

	server := mockMediaWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	client := createMockClient(t, server)

	if _, err := client.ListAllTitles(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %+v, want error", spans[0].Status())
	}
}
