package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/batch"
	"github.com/jinford/codedoc/internal/core/generation"
)

// generateRequest は単一ファイル生成リクエストのボディ
type generateRequest struct {
	Code     string `json:"code"`
	DocType  string `json:"docType"`
	Language string `json:"language"`
}

// batchRequest はバッチ生成リクエストのボディ
type batchRequest struct {
	Files           []batchFileRequest `json:"files"`
	DocType         string             `json:"docType"`
	ThrottleSeconds *int               `json:"throttleSeconds,omitempty"`
}

type batchFileRequest struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// errorResponse はエラーレスポンスのボディ
type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// handleHealth はヘルスチェックに応答する
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGenerate は同期生成エンドポイント
// 生成完了後に採点済みの結果エンベロープをJSONで返す
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	unit, docType, ok := s.decodeGenerateRequest(w, r)
	if !ok {
		return
	}

	result, err := s.generator.Generate(r.Context(), unit, generation.Options{
		DocType:   docType,
		Streaming: false,
	})
	if err != nil {
		s.logger.Error("generation failed", slog.String("error", err.Error()))
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "generation_failed",
			Message: err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleGenerateStream はストリーミング生成エンドポイント
//
// イベント列は connected → chunk* → (complete | error)。
// クライアントが切断した場合はコンテキストがキャンセルされ、進行中の
// プロバイダ呼び出しは破棄され、以降のフラグメントは送出されない。
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	unit, docType, ok := s.decodeGenerateRequest(w, r)
	if !ok {
		return
	}

	stream, err := newEventStream(w, uuid.NewString())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "streaming_unsupported",
			Message: err.Error(),
		})
		return
	}

	result, err := s.generator.Generate(r.Context(), unit, generation.Options{
		DocType:   docType,
		Streaming: true,
		OnFragment: func(fragment string) error {
			return stream.send(eventChunk, map[string]string{"content": fragment})
		},
	})
	if err != nil {
		s.logger.Error("streaming generation failed", slog.String("error", err.Error()))
		stream.fail(err.Error())
		return
	}

	_ = stream.sendTerminal(eventComplete, map[string]any{
		"qualityScore": result.QualityScore,
		"metadata":     result.Metadata,
	})
}

// handleBatchStream はバッチ生成エンドポイント
// 進捗・カウントダウン・ファイル単位の結果・最終サマリをSSEで配信する
func (s *Server) handleBatchStream(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "request body is not valid JSON",
		})
		return
	}

	if len(req.Files) == 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: "files must not be empty",
		})
		return
	}
	if s.maxBatchFiles > 0 && len(req.Files) > s.maxBatchFiles {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: "too many files in batch",
		})
		return
	}

	docType, err := generation.ParseDocType(req.DocType)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: "unknown docType: " + req.DocType,
		})
		return
	}

	files := make([]batch.File, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, batch.File{
			Name:     f.Name,
			Content:  f.Code,
			Language: analyzer.Language(f.Language),
		})
	}

	throttle := s.batchThrottle
	if req.ThrottleSeconds != nil {
		// 負値は許容しない。0はスロットル無効を意味する
		if *req.ThrottleSeconds < 0 {
			respondJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "validation_error",
				Message: "throttleSeconds must not be negative",
			})
			return
		}
		throttle = time.Duration(*req.ThrottleSeconds) * time.Second
		if throttle == 0 {
			throttle = -1 // Orchestratorはゼロ値をデフォルトと解釈するため明示的に無効化する
		}
	}

	stream, err := newEventStream(w, uuid.NewString())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "streaming_unsupported",
			Message: err.Error(),
		})
		return
	}

	summary, err := s.orchestrator.Run(r.Context(), files, batch.Config{
		DocType:       docType,
		ThrottleDelay: throttle,
		OnProgress: func(p batch.Progress) {
			_ = stream.send(eventProgress, p)
		},
		OnCountdown: func(seconds int) {
			_ = stream.send(eventCountdown, map[string]int{"seconds": seconds})
		},
		OnFileSuccess: func(fs batch.FileScore) {
			_ = stream.send(eventFile, fs)
		},
		OnFileError: func(fe batch.FileError) {
			_ = stream.send(eventFileError, fe)
		},
	})
	if err != nil {
		s.logger.Error("batch run failed", slog.String("error", err.Error()))
		stream.fail(err.Error())
		return
	}

	_ = stream.sendTerminal(eventSummary, summary)
}

// decodeGenerateRequest は生成リクエストを検証付きでデコードする
// 空・最大文字数超過・未知のdocTypeは400として弾く
func (s *Server) decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (analyzer.SourceUnit, generation.DocType, bool) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "request body is not valid JSON",
		})
		return analyzer.SourceUnit{}, "", false
	}

	docType, err := generation.ParseDocType(req.DocType)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: "unknown docType: " + req.DocType,
		})
		return analyzer.SourceUnit{}, "", false
	}

	unit, err := analyzer.NewSourceUnit(req.Code, analyzer.Language(req.Language))
	if err != nil {
		message := "invalid source code"
		switch {
		case errors.Is(err, analyzer.ErrEmptySource):
			message = "code must not be empty"
		case errors.Is(err, analyzer.ErrSourceTooLarge):
			message = "code exceeds the maximum length of 100,000 characters"
		}
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: message,
		})
		return analyzer.SourceUnit{}, "", false
	}

	return unit, docType, true
}

// respondJSON はJSONレスポンスを書き込む
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
