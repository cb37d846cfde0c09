package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	draftdomain "github.com/smallbiznis/cbam/internal/draft/domain"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	obslogger "github.com/smallbiznis/cbam/internal/observability/logger"
	"go.uber.org/zap"
)

const deviceSlotPrefix = "device_"

type draftView struct {
	Draft          draftdomain.FormDraft         `json:"draft"`
	Classification emissiondomain.Classification `json:"classification"`
}

// deviceSlot returns the draft slot of the calling browser, issuing a new
// device id cookie when the request has none or a malformed one.
func (s *Server) deviceSlot(c *gin.Context) string {
	if raw, ok := s.cookies.Device.Read(c); ok {
		if id, err := ulid.ParseStrict(raw); err == nil {
			return deviceSlotPrefix + id.String()
		}
	}
	id := ulid.Make()
	s.cookies.Device.SetLongLived(c, id.String())
	return deviceSlotPrefix + id.String()
}

func (s *Server) GetDraft(c *gin.Context) {
	ctx := c.Request.Context()
	restored, err := s.draftSvc.Restore(ctx, s.deviceSlot(c))
	if err != nil && !errors.Is(err, draftdomain.ErrDraftCorrupt) {
		AbortWithError(c, err)
		return
	}
	if err != nil {
		obslogger.FromContext(ctx).Warn("corrupt draft replaced by blank form", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"data": draftView{Draft: restored.Draft, Classification: restored.Classification}})
}

func (s *Server) SaveDraft(c *gin.Context) {
	var d draftdomain.FormDraft
	if err := c.ShouldBindJSON(&d); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	d = d.Clone()
	if err := s.draftSvc.Save(c.Request.Context(), s.deviceSlot(c), d); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": draftView{Draft: d, Classification: s.emissionSvc.Validate(d.CNCode)}})
}

func (s *Server) ClearDraft(c *gin.Context) {
	if err := s.draftSvc.Clear(c.Request.Context(), s.deviceSlot(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
