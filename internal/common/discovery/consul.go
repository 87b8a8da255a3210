package discovery

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hashicorp/consul/api"
)

// NewConsulClient 创建Consul客户端
func NewConsulClient(host string, port int) (*api.Client, error) {
	config := api.DefaultConfig()
	config.Address = fmt.Sprintf("%s:%d", host, port)
	return api.NewClient(config)
}

// ServiceRegistry Consul服务注册
type ServiceRegistry struct {
	client    *api.Client
	serviceID string
	service   string
	address   string
	port      int
	tags      []string
	check     *api.AgentServiceCheck
}

// NewServiceRegistry 创建服务注册器（gRPC 健康检查探测）
func NewServiceRegistry(client *api.Client, serviceID, service, address string, port int, tags []string) *ServiceRegistry {
	return &ServiceRegistry{
		client:    client,
		serviceID: serviceID,
		service:   service,
		address:   address,
		port:      port,
		tags:      tags,
		check: &api.AgentServiceCheck{
			GRPC:                           fmt.Sprintf("%s:%d", address, port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	}
}

// Register 注册服务
func (r *ServiceRegistry) Register() error {
	registration := &api.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    r.service,
		Tags:    r.tags,
		Address: r.address,
		Port:    r.port,
		Check:   r.check,
	}

	return r.client.Agent().ServiceRegister(registration)
}

// Deregister 注销服务
func (r *ServiceRegistry) Deregister() error {
	return r.client.Agent().ServiceDeregister(r.serviceID)
}

// Resolver 按服务名解析健康实例地址，供 HTTP 客户端使用。
// 带一层短 TTL 缓存，避免每个请求都打 Consul。
type Resolver struct {
	client *api.Client
	ttl    time.Duration

	mu    sync.Mutex
	cache map[string]resolvedEntry
}

type resolvedEntry struct {
	addrs     []string
	fetchedAt time.Time
}

// NewResolver 创建解析器；ttl <= 0 时取 5s。
func NewResolver(client *api.Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Resolver{
		client: client,
		ttl:    ttl,
		cache:  make(map[string]resolvedEntry),
	}
}

// Resolve 返回一个健康实例的 "host:port"，多实例时随机挑选。
func (r *Resolver) Resolve(service string) (string, error) {
	if service == "" {
		return "", fmt.Errorf("service name is empty")
	}

	r.mu.Lock()
	entry, ok := r.cache[service]
	fresh := ok && time.Since(entry.fetchedAt) < r.ttl
	r.mu.Unlock()

	if !fresh {
		services, _, err := r.client.Health().Service(service, "", true, nil)
		if err != nil {
			return "", fmt.Errorf("failed to query consul for service=%s: %w", service, err)
		}
		addrs := make([]string, 0, len(services))
		for _, s := range services {
			addrs = append(addrs, fmt.Sprintf("%s:%d", s.Service.Address, s.Service.Port))
		}
		entry = resolvedEntry{addrs: addrs, fetchedAt: time.Now()}
		r.mu.Lock()
		r.cache[service] = entry
		r.mu.Unlock()
	}

	if len(entry.addrs) == 0 {
		return "", fmt.Errorf("no healthy instance for service=%s", service)
	}
	return entry.addrs[rand.Intn(len(entry.addrs))], nil
}
