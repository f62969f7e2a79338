package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSubmitDocument(t *testing.T) {
	var gotEmail, gotVideoURL, gotFilename string
	var gotContent []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Метод = %s, хотели POST", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Разбор multipart: %v", err)
		}
		gotEmail = r.FormValue("email")
		gotVideoURL = r.FormValue("video_url")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Чтение части file: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotContent, _ = io.ReadAll(file)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Endpoints{DocumentURL: srv.URL}, 5*time.Second, testLogger())

	err := c.SubmitDocument(context.Background(), Submission{
		Filename:    "handbook.pdf",
		ContentType: "application/pdf",
		Content:     []byte("pdf-bytes"),
		Email:       "alice@example.com",
		VideoURL:    "https://video.example.com/v/1",
	})
	if err != nil {
		t.Fatalf("SubmitDocument() ошибка: %v", err)
	}

	if gotFilename != "handbook.pdf" {
		t.Errorf("filename = %q, хотели %q", gotFilename, "handbook.pdf")
	}
	if string(gotContent) != "pdf-bytes" {
		t.Errorf("содержимое = %q", gotContent)
	}
	if gotEmail != "alice@example.com" {
		t.Errorf("email = %q", gotEmail)
	}
	if gotVideoURL != "https://video.example.com/v/1" {
		t.Errorf("video_url = %q", gotVideoURL)
	}
}

func TestSubmitDocument_NoVideoURLField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Разбор multipart: %v", err)
		}
		if _, ok := r.MultipartForm.Value["video_url"]; ok {
			t.Error("Поле video_url присутствует при пустом VideoURL")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Endpoints{DocumentURL: srv.URL}, 5*time.Second, testLogger())
	err := c.SubmitDocument(context.Background(), Submission{
		Filename: "a.txt", Content: []byte("x"), Email: "a@example.com",
	})
	if err != nil {
		t.Fatalf("SubmitDocument() ошибка: %v", err)
	}
}

func TestSubmitAudio_UsesAudioEndpoint(t *testing.T) {
	docCalled, audioCalled := false, false

	docSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		docCalled = true
	}))
	defer docSrv.Close()
	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		audioCalled = true
	}))
	defer audioSrv.Close()

	c := New(Endpoints{DocumentURL: docSrv.URL, AudioURL: audioSrv.URL}, 5*time.Second, testLogger())
	err := c.SubmitAudio(context.Background(), Submission{
		Filename: "rec.mp3", Content: []byte("mp3"), Email: "a@example.com",
	})
	if err != nil {
		t.Fatalf("SubmitAudio() ошибка: %v", err)
	}
	if docCalled || !audioCalled {
		t.Errorf("docCalled=%v, audioCalled=%v; хотели только audio", docCalled, audioCalled)
	}
}

func TestSubmit_ErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		contains string
	}{
		{"message", http.StatusBadRequest, `{"message":"bad file"}`, "bad file"},
		{"error_description", http.StatusUnauthorized, `{"error_description":"bad code"}`, "bad code"},
		{"error", http.StatusForbidden, `{"error":"denied"}`, "denied"},
		{"не JSON", http.StatusBadGateway, "upstream down", "upstream down"},
		{"пустое тело", http.StatusInternalServerError, "", "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(Endpoints{DocumentURL: srv.URL}, 5*time.Second, testLogger())
			err := c.SubmitDocument(context.Background(), Submission{
				Filename: "a.txt", Content: []byte("x"), Email: "a@example.com",
			})
			if err == nil {
				t.Fatal("SubmitDocument() не вернул ошибку для не-2xx статуса")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Ошибка %q не содержит %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestExchangeCode_RoutesByProvider(t *testing.T) {
	var githubBody, slackBody string

	githubSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		githubBody = string(b)
	}))
	defer githubSrv.Close()
	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		slackBody = string(b)
	}))
	defer slackSrv.Close()

	c := New(Endpoints{
		GitHubExchangeURL: githubSrv.URL,
		SlackExchangeURL:  slackSrv.URL,
	}, 5*time.Second, testLogger())

	exch := ExchangeRequest{
		Code:         "auth-code",
		ClientID:     "client",
		ClientSecret: "secret",
		Email:        "a@example.com",
		GrantType:    "authorization_code",
	}

	if err := c.ExchangeCode(context.Background(), "slack", exch); err != nil {
		t.Fatalf("ExchangeCode(slack) ошибка: %v", err)
	}
	if slackBody == "" || githubBody != "" {
		t.Error("slack-код ушёл не на Slack endpoint")
	}
	if !strings.Contains(slackBody, `"code":"auth-code"`) {
		t.Errorf("Тело обмена не содержит код: %s", slackBody)
	}
	if !strings.Contains(slackBody, `"grant_type":"authorization_code"`) {
		t.Errorf("Тело обмена не содержит grant_type: %s", slackBody)
	}

	// Любой не-slack провайдер идёт на GitHub endpoint
	if err := c.ExchangeCode(context.Background(), "github", exch); err != nil {
		t.Fatalf("ExchangeCode(github) ошибка: %v", err)
	}
	if githubBody == "" {
		t.Error("github-код не дошёл до GitHub endpoint")
	}
}

func TestTriggerRefresh(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	c := New(Endpoints{RefreshURL: srv.URL}, 5*time.Second, testLogger())
	if err := c.TriggerRefresh(context.Background(), "a@example.com"); err != nil {
		t.Fatalf("TriggerRefresh() ошибка: %v", err)
	}
	if !strings.Contains(body, "a@example.com") {
		t.Errorf("Тело запроса не содержит email: %s", body)
	}
}

func TestTriggerRefresh_NotConfigured(t *testing.T) {
	c := New(Endpoints{}, 5*time.Second, testLogger())
	if err := c.TriggerRefresh(context.Background(), "a@example.com"); err == nil {
		t.Error("TriggerRefresh() без URL не вернул ошибку")
	}
}
