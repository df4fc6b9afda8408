package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/inkwell-cms/inkwell/internal/auth"
	"github.com/inkwell-cms/inkwell/internal/backend"
	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/draft"
	"github.com/inkwell-cms/inkwell/internal/editor"
	"github.com/inkwell-cms/inkwell/internal/localstore"
	"github.com/inkwell-cms/inkwell/internal/logger"
	"github.com/inkwell-cms/inkwell/internal/media"
	"github.com/inkwell-cms/inkwell/internal/model"
	"github.com/inkwell-cms/inkwell/internal/render"
	"github.com/inkwell-cms/inkwell/internal/routes"
	"github.com/inkwell-cms/inkwell/internal/socket"
	"github.com/inkwell-cms/inkwell/internal/sse"
	"github.com/inkwell-cms/inkwell/internal/util"
	"github.com/inkwell-cms/inkwell/internal/util/compression"
)

var l zerolog.Logger

var (
	local    localstore.Store
	api      backend.API
	uploader media.Uploader
	manager  *editor.Manager
	clients  = sse.NewClients()
)

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l)
	localstore.SetLogger(l)
	backend.SetLogger(l)
	media.SetLogger(l)
	draft.SetLogger(l)
	editor.SetLogger(l)
	socket.SetLogger(l)
	render.SetLogger(l)
	auth.SetLogger(l)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Error loading .env file")
	}

	if err := config.LoadConfig("config.yaml"); err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	l = logger.New(cfg.Logging.Level)
	setLoggers(l)

	local = localstore.NewSQLite(cfg.Storage.Path, compression.ForName(cfg.Storage.Compression))
	if err := local.Init(); err != nil {
		l.Fatal().Err(err).Msg("Error initializing local store")
	}
	defer local.Close()

	api = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout())

	uploader = media.NewS3Uploader(
		os.Getenv("S3_ACCESS_KEY_ID"),
		os.Getenv("S3_ACCESS_KEY_SECRET"),
		os.Getenv("S3_ENDPOINT"),
		cfg.Media.Bucket,
		cfg.Media.PublicURL,
	)

	manager = editor.NewManager(api, local, uploader, editor.Options{
		AutosaveInterval:  cfg.Editor.AutosaveInterval(),
		SelectionDebounce: cfg.Editor.SelectionDebounce(),
		SaveTimeout:       cfg.Backend.Timeout(),
		MaxUploadBytes:    cfg.Editor.MaxUploadBytes,
	})

	mux := newMux(cfg)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	l.Info().Str("addr", addr).Msg("Listening")
	l.Fatal().Err(http.ListenAndServe(addr, mux)).Msg("Server stopped")
}

func newMux(cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()

	protect := func(h http.Handler) http.Handler {
		if cfg.Auth.Enabled {
			return auth.Middleware(h)
		}
		return h
	}

	mux.Handle("POST "+routes.Sessions, protect(http.HandlerFunc(serveCreateSession)))
	mux.Handle("POST "+routes.SessionRecovery, protect(http.HandlerFunc(serveRecovery)))
	mux.Handle("POST "+routes.SessionSave, protect(http.HandlerFunc(serveSave)))
	mux.Handle("POST "+routes.SessionPublish, protect(http.HandlerFunc(servePublish)))
	mux.Handle("DELETE "+routes.Session, protect(http.HandlerFunc(serveCloseSession)))
	mux.Handle("GET "+routes.WS, protect(http.HandlerFunc(serveWS)))
	mux.Handle("POST "+routes.Images, protect(http.HandlerFunc(serveImageUpload)))

	mux.HandleFunc("POST "+routes.PartialsPreview, servePreview)
	mux.HandleFunc("GET "+routes.Events, eventsHandler)

	mux.HandleFunc("GET "+routes.Health, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Error().Err(err).Msg("Error encoding response")
	}
}

func userFrom(r *http.Request) model.UserID {
	if userID, ok := auth.UserFromContext(r.Context()); ok {
		return userID
	}
	return "anonymous"
}

// ownedSession resolves the path's session id and enforces ownership.
func ownedSession(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	id := model.SessionID(r.PathValue("id"))
	session, ok := manager.Get(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	if session.Owner != userFrom(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return session, true
}

type createSessionRequest struct {
	DraftID model.DraftID `json:"draft_id,omitempty"`
}

type sessionResponse struct {
	SessionID model.SessionID `json:"session_id"`
	Draft     *model.Draft    `json:"draft"`
	Recovery  *model.Draft    `json:"recovery,omitempty"`
}

func serveCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, "Malformed request body", http.StatusBadRequest)
			return
		}
	}

	session, err := manager.Open(r.Context(), userFrom(r), req.DraftID)
	if err != nil {
		l.Warn().Err(err).Str("draft_id", string(req.DraftID)).Msg("Error opening session")
		http.Error(w, "Could not open session", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: session.ID,
		Draft:     session.Draft(),
		Recovery:  session.PendingRecovery(),
	})
}

type recoveryRequest struct {
	Accept bool `json:"accept"`
}

func serveRecovery(w http.ResponseWriter, r *http.Request) {
	session, ok := ownedSession(w, r)
	if !ok {
		return
	}

	var req recoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed request body", http.StatusBadRequest)
		return
	}

	if !req.Accept {
		session.DiscardRecovery()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	merged, err := session.AcceptRecovery()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, merged)
}

func serveSave(w http.ResponseWriter, r *http.Request) {
	session, ok := ownedSession(w, r)
	if !ok {
		return
	}

	saved, err := session.Save(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		var validationErr *backend.ValidationError
		if errors.As(err, &validationErr) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	go clients.Broadcast(saved.ID, sse.EventSaved)
	writeJSON(w, http.StatusOK, saved)
}

type publishRequest struct {
	Slug string `json:"slug,omitempty"`
}

func servePublish(w http.ResponseWriter, r *http.Request) {
	session, ok := ownedSession(w, r)
	if !ok {
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Malformed request body", http.StatusBadRequest)
		return
	}

	published, err := session.Publish(r.Context(), model.PublishOptions{Slug: req.Slug})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, editor.ErrValidation) || errors.Is(err, editor.ErrFinished) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	go clients.Broadcast(published.ID, sse.EventPublished)
	writeJSON(w, http.StatusOK, published)
}

func serveCloseSession(w http.ResponseWriter, r *http.Request) {
	session, ok := ownedSession(w, r)
	if !ok {
		return
	}

	manager.Close(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func serveWS(w http.ResponseWriter, r *http.Request) {
	socket.ServeWS(manager, w, r, userFrom(r))
}

type uploadResponse struct {
	UploadID string `json:"upload_id"`
	InsertAt int    `json:"insert_at"`
}

func serveImageUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := model.SessionID(r.URL.Query().Get("session"))
	session, ok := manager.Get(sessionID)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if session.Owner != userFrom(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(int64(config.AppConfig.Editor.MaxUploadBytes) + 1024*1024); err != nil {
		http.Error(w, "Malformed upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Missing image field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading upload", http.StatusBadRequest)
		return
	}

	insertAt := 0
	fmt.Sscanf(r.URL.Query().Get("insert_at"), "%d", &insertAt)

	pending, err := session.StartUpload(header.Filename, data, insertAt)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		UploadID: pending.ID,
		InsertAt: pending.InsertAt,
	})
}

func servePreview(w http.ResponseWriter, r *http.Request) {
	content := r.FormValue("content")

	html := render.RenderPreviewCached([]byte(content), util.ContentHashString(content))

	title := "Preview"
	if fm, err := util.GetFrontMatter([]byte(content)); err == nil && fm.Title != "" {
		title = fm.Title
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<title>%s</title>\n%s", title, html)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	draftID := r.URL.Query().Get("draft")
	if draftID == "" {
		http.Error(w, "Draft parameter required", http.StatusBadRequest)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := &sse.Client{
		Msg:     make(chan string),
		DraftID: model.DraftID(draftID),
	}

	clients.Add(client)
	l.Debug().Str("draft_id", draftID).Msg("New SSE client connected")

	defer func() {
		clients.Delete(client)
		l.Debug().Str("draft_id", draftID).Msg("SSE client disconnected")
	}()

	notify := r.Context().Done()
	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
