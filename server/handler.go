package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/leaf/idgen"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/snowflake"
	"github.com/ceyewan/leaf/xerrors"
)

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.healthz)
	r.GET("/readyz", s.readyz)
	r.GET("/metrics", gin.WrapH(s.meter.Handler()))

	api := r.Group("/api")
	api.GET("/segment/get/:key", s.getID(s.segmentGen))
	api.GET("/snowflake/get/:key", s.getID(s.snowflakeGen))
	api.GET("/snowflake/decode/:id", s.decode)

	r.GET("/cache", s.cache)
	r.GET("/db", s.records)
}

// getID 成功时返回纯文本 ID
func (s *Server) getID(gen idgen.IDGen) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if key == "" {
			s.writeError(c, xerrors.Wrap(xerrors.ErrInvalidInput, "key is empty"))
			return
		}
		id, err := gen.Get(c.Request.Context(), key)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.String(http.StatusOK, strconv.FormatInt(id, 10))
	}
}

func (s *Server) decode(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		s.writeError(c, xerrors.Wrapf(xerrors.ErrInvalidInput, "invalid id %q", c.Param("id")))
		return
	}
	epoch := snowflake.DefaultEpoch
	if s.opts.snowflake != nil {
		epoch = s.opts.snowflake.Epoch()
	}
	c.JSON(http.StatusOK, snowflake.Parse(id, epoch))
}

func (s *Server) cache(c *gin.Context) {
	if s.opts.segment == nil {
		c.JSON(http.StatusOK, []segment.BufferView{})
		return
	}
	c.JSON(http.StatusOK, s.opts.segment.Snapshot())
}

func (s *Server) records(c *gin.Context) {
	if s.opts.segment == nil {
		c.JSON(http.StatusOK, []segment.AllocRecord{})
		return
	}
	records, err := s.opts.segment.Records(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyz 逐项执行就绪检查，任一失败返回 503
func (s *Server) readyz(c *gin.Context) {
	results, ready := s.checkReady(c.Request.Context())
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": results})
}
