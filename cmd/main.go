package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sdncontrol/collector"
	"sdncontrol/common"
	"sdncontrol/controller"
	"sdncontrol/controller_api"
	"sdncontrol/etcd"
	"sdncontrol/http_api"
	"sdncontrol/metrics"
	"sdncontrol/topology"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	common.LoadEnv()

	configPath := flag.String("config", common.ConfigPath(common.DefaultConfigPath), "path to controller_config.toml")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		log.Warnf("loading configuration failed, using defaults, err:%v", err)
		cfg = common.DefaultControllerConfig()
	}

	if err := common.InitLogging(cfg.Log); err != nil {
		log.Fatalf("init logging failed, err:%v", err)
	}

	pool, err := common.NewPool(cfg.Pool)
	if err != nil {
		log.Fatalf("create goroutine pool failed, err:%v", err)
	}
	defer pool.Release()

	registry := metrics.DefaultRegistry()

	core, err := controller.NewController(controller.Options{
		LinkBandwidth:    cfg.Controller.LinkBandwidth,
		FlowBandwidth:    cfg.Controller.FlowBandwidth,
		LoadBalancePaths: cfg.Controller.LoadBalancePaths,
		Metrics:          registry,
		Pool:             pool,
	})
	if err != nil {
		log.Fatalf("create controller failed, err:%v", err)
	}

	if cfg.Controller.TopologyFile != "" {
		desc, err := topology.ReadTopologyFile(cfg.Controller.TopologyFile)
		if err != nil {
			log.Fatalf("load topology failed, err:%v", err)
		}
		core.LoadTopology(desc)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				log.Errorf("%s stopped with error, err:%v", name, err)
				cancel()
			}
		}()
	}

	reporter := collector.NewStatusReporter(time.Duration(cfg.Controller.StatusInterval)*time.Second, registry)
	run("status reporter", func() error {
		reporter.Run(ctx)
		return nil
	})

	if cfg.GRPC.Enabled {
		server := controller_api.NewServer(core, registry)
		run("grpc server", func() error { return server.Start(ctx, cfg.GRPC.Addr) })
	}

	if cfg.HTTP.Enabled {
		gin.SetMode(gin.ReleaseMode)
		router := http_api.NewRouter(http_api.NewHandler(core, reporter), registry)
		run("http server", func() error { return http_api.Serve(ctx, cfg.HTTP.Addr, router) })
	}

	if cfg.Etcd.Enabled {
		worker, err := etcd.NewTaskWorker(etcd.EtcdConfig{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: time.Duration(cfg.Etcd.DialTimeout) * time.Second,
			Prefix:      cfg.Etcd.Prefix,
		}, pool, registry)
		if err != nil {
			log.Fatalf("create etcd task worker failed, err:%v", err)
		}
		defer worker.Close()
		worker.RegisterProcessors(etcd.ControllerProcessors(core))
		run("etcd task worker", func() error { return worker.Start(ctx) })
	}

	stats := core.Stats()
	log.Infof("controller init success, nodes=%d, links=%d, grpc=%v, http=%v, etcd=%v",
		stats.Nodes, stats.Links, cfg.GRPC.Enabled, cfg.HTTP.Enabled, cfg.Etcd.Enabled)

	select {
	case <-signalChan:
		log.Infof("received signal, shutting down")
	case <-ctx.Done():
		log.Infof("component failed, shutting down")
	}
	cancel()
	wg.Wait()
}
