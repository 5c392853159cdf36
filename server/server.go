// Package server 对外提供取号 HTTP 接口与 gRPC 健康检查
//
// 路由：
//
//	GET /api/segment/get/:key     号段模式取号，成功返回纯文本 ID
//	GET /api/snowflake/get/:key   雪花模式取号，key 被忽略
//	GET /api/snowflake/decode/:id 拆解雪花 ID
//	GET /cache                    号段缓存快照
//	GET /db                       leaf_alloc 记录
//	GET /healthz /readyz /metrics
//
// 未启用的模式返回 0。
package server

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/idgen"
	"github.com/ceyewan/leaf/metrics"
	"github.com/ceyewan/leaf/ratelimit"
	"github.com/ceyewan/leaf/trace"
	"github.com/ceyewan/leaf/xerrors"
)

// Server HTTP + gRPC 服务
type Server struct {
	cfg    *Config
	opts   *options
	logger clog.Logger
	meter  metrics.Meter

	segmentGen   idgen.IDGen
	snowflakeGen idgen.IDGen

	engine  *gin.Engine
	limiter ratelimit.Limiter
	http    *http.Server
	grpc    *grpc.Server
	health  *health.Server

	mu       sync.Mutex
	httpAddr net.Addr
	grpcAddr net.Addr
	started  bool
	wg       sync.WaitGroup
}

// New 创建服务，不监听端口
func New(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	s := &Server{
		cfg:          cfg,
		opts:         o,
		logger:       o.logger,
		meter:        o.meter,
		segmentGen:   idgen.NewSegment(o.segment),
		snowflakeGen: idgen.NewSnowflake(o.snowflake),
	}

	httpMetrics, err := metrics.NewHTTPServerMetrics(o.meter)
	if err != nil {
		return nil, err
	}

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(recovery(s.logger), requestID())
	if o.tracing {
		engine.Use(trace.GinMiddleware(cfg.ServiceName))
	}
	engine.Use(metrics.GinMiddleware(httpMetrics))
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(&cfg.RateLimit, ratelimit.WithLogger(o.logger), ratelimit.WithMeter(o.meter))
		if err != nil {
			return nil, xerrors.Wrap(err, "create rate limiter")
		}
		s.limiter = limiter
		engine.Use(ratelimit.GinMiddleware(limiter, nil))
	}
	s.routes(engine)
	s.engine = engine

	s.http = &http.Server{
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if cfg.GRPCAddr != "" {
		var grpcOpts []grpc.ServerOption
		if o.tracing {
			grpcOpts = append(grpcOpts, grpc.StatsHandler(trace.GRPCServerStatsHandler()))
		}
		s.grpc = grpc.NewServer(grpcOpts...)
		s.health = health.NewServer()
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		healthpb.RegisterHealthServer(s.grpc, s.health)
	}
	return s, nil
}

// Handler 返回 gin 引擎，便于测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPAddr Start 之后的实际监听地址
func (s *Server) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// GRPCAddr Start 之后的 gRPC 实际监听地址，未启用时为 nil
func (s *Server) GRPCAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grpcAddr
}

// Start 监听端口并在后台服务，监听失败时直接返回错误
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	httpLn, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return xerrors.Wrapf(err, "listen http %s", s.cfg.HTTPAddr)
	}
	var grpcLn net.Listener
	if s.grpc != nil {
		if grpcLn, err = net.Listen("tcp", s.cfg.GRPCAddr); err != nil {
			_ = httpLn.Close()
			return xerrors.Wrapf(err, "listen grpc %s", s.cfg.GRPCAddr)
		}
		s.grpcAddr = grpcLn.Addr()
	}
	s.httpAddr = httpLn.Addr()
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(httpLn); err != nil && !xerrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server exited", clog.Error(err))
		}
	}()
	if grpcLn != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.grpc.Serve(grpcLn); err != nil {
				s.logger.Error("grpc server exited", clog.Error(err))
			}
		}()
	}

	s.RefreshHealth(ctx)
	s.logger.InfoContext(ctx, "server started",
		clog.String("http_addr", s.httpAddr.String()),
		clog.Bool("segment", s.opts.segment != nil),
		clog.Bool("snowflake", s.opts.snowflake != nil))
	return nil
}

// RefreshHealth 按就绪检查结果更新 gRPC 健康状态
func (s *Server) RefreshHealth(ctx context.Context) {
	if s.health == nil {
		return
	}
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if _, ready := s.checkReady(ctx); ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Stop 优雅关闭，ctx 超时后强制关闭
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	var errs []error
	if s.health != nil {
		s.health.Shutdown()
	}
	if started {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, xerrors.Wrap(err, "shutdown http"))
		}
		if s.grpc != nil {
			stopGRPC(ctx, s.grpc)
		}
		s.wg.Wait()
	}
	if s.limiter != nil {
		errs = append(errs, s.limiter.Close())
	}
	s.logger.Info("server stopped")
	return xerrors.Combine(errs...)
}

// stopGRPC GracefulStop 超过 ctx 期限时退化为 Stop
func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
}

// CheckResult 单项就绪检查结果
type CheckResult struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

func (s *Server) checkReady(ctx context.Context) ([]CheckResult, bool) {
	var results []CheckResult
	ready := true
	add := func(name string, err error) {
		r := CheckResult{Name: name, Ready: err == nil}
		if err != nil {
			r.Error = err.Error()
			ready = false
		}
		results = append(results, r)
	}

	if a := s.opts.segment; a != nil {
		var err error
		if !a.Ready() {
			err = segmentNotReady
		}
		add("segment", err)
	}
	if s.opts.snowflake != nil {
		add("snowflake", nil)
	}
	for _, c := range s.opts.checks {
		add(c.name, c.fn(ctx))
	}
	return results, ready
}

var segmentNotReady = xerrors.New("segment allocator not initialized")
