/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	commonconfig "github.com/talesofai/nietest/pkg/config"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
	"github.com/talesofai/nietest/pkg/dispatcher"
	"github.com/talesofai/nietest/pkg/engine"
	"github.com/talesofai/nietest/pkg/handlers"
	"github.com/talesofai/nietest/pkg/httpserver"
	"github.com/talesofai/nietest/pkg/imageapi"
	commonklog "github.com/talesofai/nietest/pkg/klog"
	"github.com/talesofai/nietest/pkg/monitor"
	"github.com/talesofai/nietest/pkg/notification"
	"github.com/talesofai/nietest/pkg/options"
	"github.com/talesofai/nietest/pkg/pool"
)

const gracefulStopTimeout = 30 * time.Second

type Server struct {
	opts       *options.Options
	httpServer *http.Server

	dbClient   *dbclient.Client
	defPool    *pool.Pool
	luminaPool *pool.Pool
	monitors   *monitor.Manager
	engine     *engine.Engine
	sweeper    *cron.Cron

	ctx       context.Context
	cancelCtx context.CancelFunc
	isInited  bool
}

func NewServer() (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:      &options.Options{},
		ctx:       ctx,
		cancelCtx: cancel,
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = s.initLogs(); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if err = s.initComponents(); err != nil {
		klog.ErrorS(err, "failed to init components")
		return err
	}
	s.isInited = true
	return nil
}

func (s *Server) initLogs() error {
	return commonklog.Init(s.opts.LogfilePath, s.opts.LogFileSize)
}

func (s *Server) initConfig() error {
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = commonconfig.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

func (s *Server) initComponents() error {
	if s.dbClient = dbclient.NewClient(); s.dbClient == nil {
		return fmt.Errorf("failed to new db client")
	}

	s.defPool = pool.New(commonconfig.PoolDefault, commonconfig.GetPoolMin(commonconfig.PoolDefault))
	s.luminaPool = pool.New(commonconfig.PoolLumina, commonconfig.GetPoolMin(commonconfig.PoolLumina))
	interval := time.Duration(commonconfig.GetAutoscaleIntervalSecond()) * time.Second
	go pool.NewAutoscaler(s.defPool, scalePolicyOf(commonconfig.PoolDefault), interval).Run(s.ctx)
	go pool.NewAutoscaler(s.luminaPool, scalePolicyOf(commonconfig.PoolLumina), interval).Run(s.ctx)

	notifier := notification.NewNotifier(s.dbClient)
	disp := dispatcher.New(s.dbClient, imageapi.NewClient(), s.defPool, s.luminaPool)
	mon := monitor.New(s.dbClient, notifier,
		time.Duration(commonconfig.GetMonitorIntervalSecond())*time.Second)
	s.monitors = monitor.NewManager(mon)
	s.engine = engine.New(s.dbClient, disp, s.monitors, notifier)

	sweeper, err := engine.StartSweeper(s.dbClient)
	if err != nil {
		return err
	}
	s.sweeper = sweeper
	return nil
}

func scalePolicyOf(name string) pool.ScalePolicy {
	return pool.ScalePolicy{
		Min:               commonconfig.GetPoolMin(name),
		Max:               commonconfig.GetPoolMax(name),
		Step:              commonconfig.GetPoolStep(name),
		ScaleUpInterval:   time.Duration(commonconfig.GetPoolScaleUpIntervalSecond(name)) * time.Second,
		ScaleDownInterval: time.Duration(commonconfig.GetPoolScaleDownIntervalSecond(name)) * time.Second,
		IdleHold:          time.Duration(commonconfig.GetPoolIdleHoldSecond(name)) * time.Second,
	}
}

// Start runs the server until SIGINT/SIGTERM and then tears everything down.
func (s *Server) Start() {
	if !s.isInited {
		klog.Error("the server is not initialized")
		return
	}
	if commonconfig.GetServerPort() <= 0 {
		klog.Error("the server port is not defined")
		return
	}
	if err := s.engine.ResumeProcessingTasks(s.ctx); err != nil {
		klog.ErrorS(err, "failed to resume in-flight tasks")
	}

	handler := handlers.InitHttpHandlers(handlers.NewHandler(s.engine))
	addr := fmt.Sprintf(":%d", commonconfig.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: handler}
	klog.Infof("http-server listen port: %d", commonconfig.GetServerPort())

	stopCh := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		close(stopCh)
	}()

	if err := httpserver.Run(stopCh, gracefulStopTimeout, s.httpServer); err != nil {
		klog.ErrorS(err, "failed to stop http server cleanly")
	}
	s.shutdown()
}

func (s *Server) shutdown() {
	s.cancelCtx()
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.monitors != nil {
		s.monitors.StopAll()
	}
	if s.defPool != nil {
		s.defPool.Close()
	}
	if s.luminaPool != nil {
		s.luminaPool.Close()
	}
	if s.dbClient != nil {
		s.dbClient.Close()
	}
	klog.Info("server stopped")
}
