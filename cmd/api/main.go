/*
 * Copyright 2024 JusticeChain contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justicechain/justicechain/chat"
	"github.com/justicechain/justicechain/common"
	"github.com/justicechain/justicechain/docket"
	redisutil "github.com/kthomas/go-redisutil"
)

const defaultListenPort = "8080"
const shutdownTimeout = time.Second * 10

func main() {
	common.Log.Debug("installing case record and realtime channel API")

	redisutil.RequireRedis()

	r := gin.New()
	r.Use(gin.Recovery())

	docket.InstallAPI(r)
	chat.InstallAPI(r)

	r.GET("/status", statusHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultListenPort
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%s", port),
		Handler: r,
	}

	go func() {
		common.Log.Infof("api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.Log.Panicf("api server failed; %s", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.Log.Debug("shutting down api")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.Log.Warningf("api shutdown failed; %s", err.Error())
	}
}

func statusHandler(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
