package http

import (
	"net/http"
	"strconv"

	"florencia/src/domain"
	"florencia/src/services/catalog"
)

func (s *Server) GetDashboard(w http.ResponseWriter, r *http.Request) {
	recent := s.settings.RecentProducts
	if raw := r.URL.Query().Get("recent"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
			return
		}
		recent = parsed
	}

	records, err := s.products(r)
	if err != nil {
		s.writeError(w, err, domain.NoticeCatalogLoad)
		return
	}

	summary := catalog.Summarize(records, s.settings.Categories, recent)
	s.writeNotice(w, http.StatusOK, noticeLoaded, MapSummaryToResponse(summary))
}
