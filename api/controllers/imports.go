package controllers

import (
	"net/http"
	"strings"

	"github.com/openartmap/openartmap-backend/api/responses"
	"github.com/openartmap/openartmap-backend/api/validators"
	"github.com/openartmap/openartmap-backend/internal/massimport"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/logger"
)

// ImportTokenHeader carries the shared token trusted bulk feeds present.
const ImportTokenHeader = "X-Import-Token"

type importArtworksRequest struct {
	Source    string                      `json:"source" validate:"required"`
	SourceURL string                      `json:"source_url,omitempty"`
	Features  []massimport.ArtworkFeature `json:"features" validate:"required"`
}

type importArtistsRequest struct {
	Source    string                    `json:"source" validate:"required"`
	SourceURL string                    `json:"source_url,omitempty"`
	Artists   []massimport.ArtistObject `json:"artists" validate:"required"`
}

// ImportArtworks accepts one GeoJSON-shaped artwork feed batch.
func ImportArtworks(svc massimport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		var payload importArtworksRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ImportArtworks(r.Context(), massimport.ImportArtworksInput{
			Token:     importToken(r),
			Source:    payload.Source,
			SourceURL: payload.SourceURL,
			Features:  payload.Features,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// ImportArtists accepts one artist feed batch.
func ImportArtists(svc massimport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		var payload importArtistsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ImportArtists(r.Context(), massimport.ImportArtistsInput{
			Token:     importToken(r),
			Source:    payload.Source,
			SourceURL: payload.SourceURL,
			Artists:   payload.Artists,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

func importToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ImportTokenHeader))
}
