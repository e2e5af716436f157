// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package queryapi serves the ledger over HTTP.
package queryapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/commitsync/commitsyncd/internal/authset"
	"github.com/commitsync/commitsyncd/internal/ledger"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// ParameterItem is used to identify a created item.
	ParameterItem = "item"

	// ParameterEpoch is used to identify a ledger epoch.
	ParameterEpoch = "epoch"

	// ParameterNullifier is used to identify a nullifier.
	ParameterNullifier = "nullifier"
)

const (
	// RouteCreatedItem returns the inclusion proof of a created item.
	RouteCreatedItem = "/created_item/:" + ParameterItem

	// RouteCreatedItems returns every created item.
	RouteCreatedItems = "/created_items"

	// RouteLatestRoot returns the latest created items root.
	RouteLatestRoot = "/created_items_root"

	// RouteRoot returns the created items root of an epoch.
	RouteRoot = "/created_items_root/:" + ParameterEpoch

	// RouteNullifier returns whether a nullifier was spent.
	RouteNullifier = "/nullifier/:" + ParameterNullifier

	// RouteInfo returns the version and sync status.
	RouteInfo = "/info"

	// RouteMetrics returns the prometheus metrics.
	RouteMetrics = "/metrics"
)

// shutdownTimeout bounds the time in-flight requests get to finish once the
// server is stopped.
const shutdownTimeout = 5 * time.Second

// Ledger provides read access to the ledger.  It is implemented by
// ledger.Ledger.
type Ledger interface {
	Root(epoch uint64) (chainhash.Hash, error)
	LatestRoot() (uint64, chainhash.Hash)
	InclusionProof(item *chainhash.Hash) (uint64, *authset.InclusionProof, error)
	Items() (uint64, []chainhash.Hash)
	NullifierExists(n *chainhash.Hash) bool
	Stats() ledger.Stats
}

// SyncStatus reports the progress of the sync loop.  It is implemented by
// chainsync.Syncer.
type SyncStatus interface {
	SyncedSlot() (uint64, bool)
	HeadSlot() uint64
}

// Config is a descriptor containing the query server configuration.
type Config struct {
	// Listeners are the listeners the server accepts connections on.  The
	// server takes ownership of them and closes them when stopped.
	Listeners []net.Listener

	// Ledger is the ledger that is served.
	Ledger Ledger

	// Sync reports sync progress for the info route.  It may be nil.
	Sync SyncStatus

	// Gatherer provides the metrics route.  The route is not registered
	// when it is nil.
	Gatherer prometheus.Gatherer

	// Version is reported by the info route.
	Version string
}

// Server serves the ledger over HTTP.
type Server struct {
	cfg  Config
	echo *echo.Echo
}

// InclusionProof is the JSON form of an inclusion proof.
type InclusionProof struct {
	Index    uint32          `json:"index"`
	Siblings []hexutil.Bytes `json:"siblings"`
	TreeRoot hexutil.Bytes   `json:"tree_root"`
}

// CreatedItemResponse is returned by RouteCreatedItem.
type CreatedItemResponse struct {
	Epoch uint64         `json:"epoch"`
	Proof InclusionProof `json:"proof"`
}

// CreatedItemsResponse is returned by RouteCreatedItems.
type CreatedItemsResponse struct {
	Epoch uint64          `json:"epoch"`
	Items []hexutil.Bytes `json:"items"`
}

// RootResponse is returned by RouteLatestRoot and RouteRoot.
type RootResponse struct {
	Epoch uint64        `json:"epoch"`
	Root  hexutil.Bytes `json:"root"`
}

// InfoResponse is returned by RouteInfo.
type InfoResponse struct {
	Version    string        `json:"version"`
	Epoch      uint64        `json:"epoch"`
	Items      int           `json:"items"`
	Nullifiers int           `json:"nullifiers"`
	LatestRoot hexutil.Bytes `json:"latest_root"`
	SyncedSlot *uint64       `json:"synced_slot,omitempty"`
	HeadSlot   uint64        `json:"head_slot"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// hashBytes returns the hash in plain byte order for JSON encoding.
func hashBytes(h *chainhash.Hash) hexutil.Bytes {
	return hexutil.Bytes(h[:])
}

// parseHash parses a hash given as hex in plain byte order with an optional
// 0x prefix.
func parseHash(c echo.Context, param string) (chainhash.Hash, error) {
	var h chainhash.Hash
	s := c.Param(param)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return h, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("invalid %s %q: %v", param, c.Param(param), err))
	}
	if len(b) != chainhash.HashSize {
		return h, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("invalid %s %q: %d bytes instead of %d", param,
				c.Param(param), len(b), chainhash.HashSize))
	}
	copy(h[:], b)
	return h, nil
}

// New returns a query server for the configuration.
func New(cfg *Config) *Server {
	s := &Server{cfg: *cfg, echo: echo.New()}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recover())

	e.GET(RouteCreatedItem, s.handleCreatedItem)
	e.GET(RouteCreatedItems, s.handleCreatedItems)
	e.GET(RouteLatestRoot, s.handleLatestRoot)
	e.GET(RouteRoot, s.handleRoot)
	e.GET(RouteNullifier, s.handleNullifier)
	e.GET(RouteInfo, s.handleInfo)
	if cfg.Gatherer != nil {
		handler := promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})
		e.GET(RouteMetrics, echo.WrapHandler(handler))
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// errorHandler writes every error as an ErrorResponse.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var herr *echo.HTTPError
	if errors.As(err, &herr) {
		code = herr.Code
		msg = fmt.Sprint(herr.Message)
	}
	if code >= http.StatusInternalServerError {
		log.Errorf("Request %s %s failed: %v", c.Request().Method,
			c.Request().URL.Path, err)
	}

	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = msg
	if err := c.JSON(code, &resp); err != nil {
		log.Debugf("Unable to write error response: %v", err)
	}
}

func (s *Server) handleCreatedItem(c echo.Context) error {
	item, err := parseHash(c, ParameterItem)
	if err != nil {
		return err
	}
	epoch, p, err := s.cfg.Ledger.InclusionProof(&item)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}

	resp := CreatedItemResponse{
		Epoch: epoch,
		Proof: InclusionProof{
			Index:    p.Index,
			Siblings: make([]hexutil.Bytes, 0, len(p.Siblings)),
			TreeRoot: hashBytes(&p.TreeRoot),
		},
	}
	for i := range p.Siblings {
		resp.Proof.Siblings = append(resp.Proof.Siblings,
			hashBytes(&p.Siblings[i]))
	}
	return c.JSON(http.StatusOK, &resp)
}

func (s *Server) handleCreatedItems(c echo.Context) error {
	epoch, items := s.cfg.Ledger.Items()
	resp := CreatedItemsResponse{
		Epoch: epoch,
		Items: make([]hexutil.Bytes, 0, len(items)),
	}
	for i := range items {
		resp.Items = append(resp.Items, hashBytes(&items[i]))
	}
	return c.JSON(http.StatusOK, &resp)
}

func (s *Server) handleLatestRoot(c echo.Context) error {
	epoch, root := s.cfg.Ledger.LatestRoot()
	return c.JSON(http.StatusOK, &RootResponse{
		Epoch: epoch,
		Root:  hashBytes(&root),
	})
}

func (s *Server) handleRoot(c echo.Context) error {
	param := c.Param(ParameterEpoch)
	epoch, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("invalid epoch %q", param))
	}
	root, err := s.cfg.Ledger.Root(epoch)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownEpoch) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, &RootResponse{
		Epoch: epoch,
		Root:  hashBytes(&root),
	})
}

func (s *Server) handleNullifier(c echo.Context) error {
	n, err := parseHash(c, ParameterNullifier)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.cfg.Ledger.NullifierExists(&n))
}

func (s *Server) handleInfo(c echo.Context) error {
	stats := s.cfg.Ledger.Stats()
	resp := InfoResponse{
		Version:    s.cfg.Version,
		Epoch:      stats.Epoch,
		Items:      stats.Items,
		Nullifiers: stats.Nullifiers,
		LatestRoot: hashBytes(&stats.LatestRoot),
	}
	if s.cfg.Sync != nil {
		if slot, ok := s.cfg.Sync.SyncedSlot(); ok {
			resp.SyncedSlot = &slot
		}
		resp.HeadSlot = s.cfg.Sync.HeadSlot()
	}
	return c.JSON(http.StatusOK, &resp)
}

// Run serves requests on the configured listeners until the context is
// cancelled.
func (s *Server) Run(ctx context.Context) {
	log.Trace("Starting query server")
	server := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	for _, listener := range s.cfg.Listeners {
		wg.Add(1)
		go func(listener net.Listener) {
			log.Infof("Query server listening on %s", listener.Addr())
			err := server.Serve(listener)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Query listener %s failed: %v", listener.Addr(),
					err)
			}
			log.Tracef("Query listener done for %s", listener.Addr())
			wg.Done()
		}(listener)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Unable to shut down query server: %v", err)
	}
	wg.Wait()
	log.Trace("Query server stopped")
}
