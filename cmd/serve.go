package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jsphweid/abcdex/abc"
	"github.com/jsphweid/abcdex/constants"
	"github.com/jsphweid/abcdex/file"
	"github.com/jsphweid/abcdex/midi"
	"github.com/jsphweid/abcdex/model"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from ABCDEX_ADDR or :8080)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the converter over HTTP",
	Long: `Serves POST /convert (ABC in, JSON summary out), GET /renders/{id}
(the converted MIDI file) and POST /extract (MIDI in, JSON notes out).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = constants.GetAddr()
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           NewServer(constants.GetStrict()).Router(constants.GetCORSOrigins()),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logrus.WithField("addr", addr).Info("listening")
		return srv.ListenAndServe()
	},
}

type render struct {
	name string
	data []byte
}

// Server keeps converted files in memory until the process exits.
type Server struct {
	strict bool

	mu      sync.RWMutex
	renders map[string]render
}

func NewServer(strict bool) *Server {
	return &Server{strict: strict, renders: map[string]render{}}
}

func (s *Server) Router(origins []string) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/convert", s.HandleConvert).Methods(http.MethodPost)
	router.HandleFunc("/extract", s.HandleExtract).Methods(http.MethodPost)
	router.HandleFunc("/renders/{id}", s.HandleRender).Methods(http.MethodGet)
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("could not write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := model.ErrorResponse{Error: err.Error()}
	var pe *abc.ParseError
	if errors.As(err, &pe) {
		resp.File, resp.Line, resp.Column = pe.File, pe.Line, pe.Column
	}
	writeJSON(w, status, resp)
}

// readSources accepts either a JSON ConvertRequestBody or plain ABC text.
func readSources(r *http.Request) ([]abc.Source, model.ConvertRequestBody, error) {
	var req model.ConvertRequestBody
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, req, errors.Wrap(err, "reading request body")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		lines, err := file.DecodeLines(bytes.NewReader(body))
		if err != nil {
			return nil, req, err
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "song.abc"
		}
		return []abc.Source{{Name: name, Lines: lines}}, req, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return nil, req, errors.Wrap(err, "could not unmarshal request body")
	}
	if len(req.Files) == 0 {
		return nil, req, errors.New("no files in request")
	}
	sources := make([]abc.Source, 0, len(req.Files))
	for i, f := range req.Files {
		lines, err := file.DecodeLines(strings.NewReader(f.Text))
		if err != nil {
			return nil, req, err
		}
		if f.Name == "" {
			f.Name = "part" + strconv.Itoa(i+1) + ".abc"
		}
		sources = append(sources, abc.Source{Name: f.Name, Lines: lines})
	}
	return sources, req, nil
}

func (s *Server) HandleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes)
	sources, req, err := readSources(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := abc.DefaultOptions()
	opts.Strict = s.strict
	if req.Strict != nil {
		opts.Strict = *req.Strict
	}
	opts.Stereo = !req.Mono
	res, err := abc.ConvertFiles(sources, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	var buf bytes.Buffer
	if err := midi.Write(&buf, res.SMF); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	id := uuid.NewString()
	resp, err := model.NewConvertResponse(id, res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	s.renders[id] = render{name: file.RenderName(resp.Title), data: buf.Bytes()}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{"id": id, "parts": len(resp.Parts)}).Info("converted")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleRender(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.RLock()
	rd, ok := s.renders[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("no render with id %q", id))
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rd.name}))
	http.ServeContent(w, r, rd.name, time.Time{}, bytes.NewReader(rd.data))
}

func (s *Server) HandleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes)
	sm, err := midi.Read(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := model.NewExtractResponse(sm)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
