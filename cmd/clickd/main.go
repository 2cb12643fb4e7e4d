// Package main implements clickd, the packet-processing daemon: load a
// graph description, build and initialize its element graph, start the
// worker scheduler, and serve the element control RPC and Prometheus
// metrics endpoints until signaled to shut down.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clickrt/corepath/cmn/cos"
	"github.com/clickrt/corepath/cmn/nlog"
	"github.com/clickrt/corepath/config"
	"github.com/clickrt/corepath/element"
	_ "github.com/clickrt/corepath/elements/aggregategroup"
	_ "github.com/clickrt/corepath/elements/classify"
	_ "github.com/clickrt/corepath/elements/ctxcounter"
	_ "github.com/clickrt/corepath/elements/ctxcrc"
	_ "github.com/clickrt/corepath/elements/equeue"
	_ "github.com/clickrt/corepath/elements/rrswitch"
	_ "github.com/clickrt/corepath/elements/sink"
	_ "github.com/clickrt/corepath/elements/source"
	_ "github.com/clickrt/corepath/elements/strip"
	"github.com/clickrt/corepath/handler"
	"github.com/clickrt/corepath/hk"
	"github.com/clickrt/corepath/router"
	"github.com/clickrt/corepath/sched"
)

var flags struct {
	conf      string
	metricsOn string
}

func main() {
	newFlag := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	newFlag.StringVar(&flags.conf, "conf", "", "path to the graph description (JSON)")
	newFlag.StringVar(&flags.metricsOn, "metrics", ":9191", "address to serve /metrics on")
	newFlag.Parse(os.Args[1:])

	if flags.conf == "" {
		nlog.Errorf("clickd: -conf is required")
		os.Exit(1)
	}

	f, err := os.Open(flags.conf)
	if err != nil {
		cos.ExitLogf("clickd: cannot open %s: %v", flags.conf, err)
	}
	g, err := config.Load(f)
	f.Close()
	if err != nil {
		cos.ExitLogf("clickd: %v", err)
	}

	cos.InitShortID(uint64(time.Now().UnixNano()))

	graph, err := router.Build(g.RouterNodes(), g.RouterLinks(), element.DefaultRegistry)
	if err != nil {
		cos.ExitLogf("clickd: build graph: %v", err)
	}
	if err := graph.Init(g.Workers); err != nil {
		cos.ExitLogf("clickd: init graph: %v", err)
	}
	nlog.Infof("clickd: graph initialized, %d element(s)", len(graph.Elements()))

	go hk.DefaultHK.Run()

	pool := sched.NewPool(g.Workers)
	if err := graph.Schedule(pool); err != nil {
		graph.Cleanup()
		cos.ExitLogf("clickd: schedule graph: %v", err)
	}
	if g.Pinning {
		pool.StartPinned()
	} else {
		pool.Start()
	}

	hreg := handler.NewRegistry()
	hsrv := handler.NewServer(hreg)
	if g.Handler != "" {
		go func() {
			if err := hsrv.Serve(g.Handler); err != nil {
				nlog.Warningf("clickd: handler server stopped: %v", err)
			}
		}()
		nlog.Infof("clickd: control RPC listening on %s", g.Handler)
	}

	metricsSrv := &http.Server{Addr: flags.metricsOn, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nlog.Warningf("clickd: metrics server stopped: %v", err)
		}
	}()
	nlog.Infof("clickd: metrics listening on %s", flags.metricsOn)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	nlog.Infof("clickd: draining on signal")
	hsrv.Close()
	metricsSrv.Close()
	pool.Stop()
	graph.Cleanup()
	hk.DefaultHK.Stop()
	nlog.Flush(true)
}
