package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestExtractLines(t *testing.T) {
	// arrange
	testCases := []struct {
		input    string
		expected []string
	}{
		{
			input:    `["名字", "耶加雪菲"]`,
			expected: []string{"名字", "耶加雪菲"},
		},
		{
			input:    "Here is the text on the card:\n\n[\"品种\", \" 原生种 \", \"\"]\nHope this helps.",
			expected: []string{"品种", "原生种"},
		},
		{
			input:    `["风味", "莓果[酸质]明亮", 86.5]`,
			expected: []string{"风味", "莓果[酸质]明亮", "86.5"},
		},
		{
			input:    `No JSON here`,
			expected: nil,
		},
		{
			input:    `["unterminated", "array"`,
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("input=%q", tc.input), func(t *testing.T) {
			// act
			actual, err := extractLines(tc.input)

			// assert
			if tc.expected == nil {
				if err == nil {
					t.Errorf("expected error, got %q", actual)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(tc.expected, actual) {
				t.Errorf("lines don't match.\nExpected: %q\nGot: %q", tc.expected, actual)
			}
		})
	}
}

func TestOllamaEngine_Recognize(t *testing.T) {
	// arrange
	var got OllamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(OllamaResponse{Response: `Sure: ["名字", "花魁"]`, Done: true})
	}))
	defer srv.Close()

	engine := NewOllamaEngine(srv.URL+"/", "test-model")

	// act
	lines, err := engine.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))

	// assert
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"名字", "花魁"}) {
		t.Errorf("unexpected lines %q", lines)
	}
	if got.Model != "test-model" || len(got.Images) != 1 || got.Stream {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestOllamaEngine_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaEngine(srv.URL, "").Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err == nil {
		t.Errorf("expected error for HTTP 500")
	}
}
