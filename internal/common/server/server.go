package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AutoFixLink/AutoFixLink/internal/common/config"
	"github.com/AutoFixLink/AutoFixLink/internal/common/discovery"
	"github.com/AutoFixLink/AutoFixLink/internal/common/logger"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type RunOptions struct {
	EnableReflection bool
	ShutdownTimeout  time.Duration
}

func defaultRunOptions() RunOptions {
	return RunOptions{
		EnableReflection: true,
		ShutdownTimeout:  5 * time.Second,
	}
}

// RunServer 统一的服务启动模板：
// - 业务 HTTP 服务监听 HTTPPort
// - gRPC 健康检查服务监听 GRPCPort（Consul 的 GRPC check 探测这里；
//   业务面没有 proto，健康协议是现成的，不需要生成代码）
// - 注册到 Consul，退出时注销
// - 信号驱动的优雅退出
func RunServer(cfg *config.Config, log logger.Logger, handler http.Handler, opts ...func(*RunOptions)) error {
	if cfg == nil {
		return fmt.Errorf("cfg is nil")
	}
	if log == nil {
		return fmt.Errorf("log is nil")
	}
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}

	o := defaultRunOptions()
	for _, apply := range opts {
		if apply != nil {
			apply(&o)
		}
	}

	// 初始化 Consul 客户端（失败不阻塞服务启动）
	consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
	if err != nil {
		log.Warnf("failed to connect to Consul: %v", err)
		consulClient = nil
	}

	// gRPC 健康检查面
	grpcLis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen grpc port: %w", err)
	}
	grpcSrv := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	if o.EnableReflection {
		reflection.Register(grpcSrv)
	}

	// 业务 HTTP 面
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 注册到 Consul（成功才 defer 注销）
	if consulClient != nil {
		serviceID := fmt.Sprintf("%s-%s", cfg.Server.Name, uuid.New().String())
		registry := discovery.NewServiceRegistry(
			consulClient,
			serviceID,
			cfg.Server.Name,
			cfg.Server.Host,
			cfg.Server.GRPCPort,
			[]string{"http", "gateway"},
		)
		if err := registry.Register(); err != nil {
			log.Warnf("failed to register service to Consul: %v", err)
		} else {
			log.Infof("Service registered to Consul: %s", serviceID)
			defer func() {
				if err := registry.Deregister(); err != nil {
					log.Warnf("failed to deregister service from Consul: %v", err)
				}
			}()
		}
	}

	log.Infof("%s starting http=%s:%d grpc-health=%s:%d",
		cfg.Server.Name, cfg.Server.Host, cfg.Server.HTTPPort, cfg.Server.Host, cfg.Server.GRPCPort)

	serveErr := make(chan error, 2)
	go func() {
		if err := grpcSrv.Serve(grpcLis); err != nil {
			serveErr <- fmt.Errorf("grpc serve failed: %w", err)
		}
	}()
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("http serve failed: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("received signal %v, shutting down...", sig)
	case err := <-serveErr:
		// 任一监听面失败都整体退出
		grpcSrv.Stop()
		_ = httpSrv.Close()
		return err
	}

	// 优雅关闭：先摘健康状态，再停两个监听面
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warnf("http shutdown: %v", err)
		_ = httpSrv.Close()
	}

	stopped := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-ctx.Done():
		log.Warn("grpc shutdown timeout, forcing stop...")
		grpcSrv.Stop()
	case <-stopped:
		log.Info("server stopped gracefully")
	}

	return nil
}

// WithShutdownTimeout 修改优雅退出等待时间。
func WithShutdownTimeout(d time.Duration) func(*RunOptions) {
	return func(o *RunOptions) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

// WithReflection 控制是否启用 gRPC reflection。
func WithReflection(enable bool) func(*RunOptions) {
	return func(o *RunOptions) {
		o.EnableReflection = enable
	}
}
