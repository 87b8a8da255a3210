package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/AutoFixLink/AutoFixLink/internal/audit"
	"github.com/AutoFixLink/AutoFixLink/internal/backend"
	"github.com/AutoFixLink/AutoFixLink/internal/common/auth"
	"github.com/AutoFixLink/AutoFixLink/internal/common/config"
	"github.com/AutoFixLink/AutoFixLink/internal/common/db"
	"github.com/AutoFixLink/AutoFixLink/internal/common/discovery"
	"github.com/AutoFixLink/AutoFixLink/internal/common/logger"
	"github.com/AutoFixLink/AutoFixLink/internal/common/middleware"
	"github.com/AutoFixLink/AutoFixLink/internal/common/server"
	"github.com/AutoFixLink/AutoFixLink/internal/common/tracing"
	"github.com/AutoFixLink/AutoFixLink/internal/gateway"
	"github.com/AutoFixLink/AutoFixLink/internal/receipt"
	"github.com/AutoFixLink/AutoFixLink/internal/reconcile"
	"github.com/AutoFixLink/AutoFixLink/internal/repair"
)

var (
	configPath  = flag.String("config", "configs/engineer-gateway.json", "配置文件路径")
	consulKVKey = flag.String("consul-kv", "", "从 Consul KV 加载配置的 key（优先于本地文件）")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if *consulKVKey != "" {
		if kvCfg, kvErr := config.LoadConfigFromConsulKV(cfg.Consul.Host, cfg.Consul.Port, *consulKVKey); kvErr == nil {
			cfg = kvCfg
		}
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 审计库：连不上时降级为不写审计，不阻塞网关启动
	var auditStore gateway.AuditStore
	gdb, err := db.NewMySQL(
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.User, cfg.Database.Password, cfg.Database.Database,
		cfg.Database.MaxIdle, cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Warnf("audit database unavailable, transitions will not be persisted: %v", err)
	} else {
		if err := gdb.AutoMigrate(&audit.TransitionEvent{}); err != nil {
			log.Warnf("failed to migrate audit table: %v", err)
		}
		auditStore = audit.NewRepo(gdb)
	}

	// 出站凭证由会话模块在登录后写入；联调时可用环境变量预置
	tokens := &auth.SessionTokenSource{}
	if t := os.Getenv("BACKEND_ACCESS_TOKEN"); t != "" {
		tokens.Update(t)
	}

	// 后端地址解析：BaseURL 缺省时按服务名走 Consul
	var resolver *discovery.Resolver
	if consulClient, cerr := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port); cerr != nil {
		log.Warnf("failed to connect to Consul, backend resolution disabled: %v", cerr)
	} else {
		resolver = discovery.NewResolver(consulClient, 0)
	}

	receipts := receipt.NewClient(
		backend.New("receipt-backend", cfg.Backends.Receipt, cfg.Backends, tokens, resolver, log))
	orders := reconcile.NewService(
		backend.New("order-backend", cfg.Backends.Order, cfg.Backends, tokens, resolver, log), log)

	h := gateway.NewHandler(receipts, orders, repair.NewController(), auditStore, log)

	handler := server.Chain(h.Routes(),
		server.RecoveryMiddleware(log),
		server.AccessLogMiddleware(log),
		server.TracingMiddleware(cfg.Server.Name),
		server.RateLimitMiddleware(middleware.NewTokenBucket(200, 100)),
		server.JWTAuthMiddleware(cfg.Auth, log),
	)

	if err := server.RunServer(cfg, log, handler); err != nil {
		log.Fatalf("engineer-gateway exited with error: %v", err)
	}
}
