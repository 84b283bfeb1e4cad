package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// connState tracks the Uninitialized -> Initialized -> Shutdown state
// machine from spec §4.H. Calls before initialize fail; after shutdown the
// process exits cleanly.
type connState int32

const (
	stateUninitialized connState = iota
	stateInitialized
	stateShutdown
)

// maxConcurrentTools bounds how many tool handlers may run at once, per
// spec §5 ("tool handlers may run concurrently up to a bound, default 16").
const maxConcurrentTools = 16

// defaultDeadline is applied to a handler when the caller supplies none,
// per spec §5.
const defaultDeadline = 60 * time.Second

// Server runs the stdio JSON-RPC loop described in spec §4.H.
type Server struct {
	reg   *Registry
	out   io.Writer
	outMu sync.Mutex
	state atomic.Int32
	sem   *semaphore.Weighted
	wg    sync.WaitGroup
	log   *log.Logger
}

func NewServer(reg *Registry, out io.Writer, errLog *log.Logger) *Server {
	if errLog == nil {
		errLog = log.Default()
	}
	return &Server{
		reg: reg,
		out: out,
		sem: semaphore.NewWeighted(maxConcurrentTools),
		log: errLog,
	}
}

// Serve reads newline-delimited JSON-RPC requests from in until ctx is
// cancelled or the client issues shutdown, then waits for in-flight
// handlers to drain. The server never writes anything to out outside a
// single framed JSON response per line.
func (s *Server) Serve(ctx context.Context, in io.Reader) error {
	s.state.Store(int32(stateUninitialized))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if connState(s.state.Load()) == stateShutdown {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(Response{JSONRPC: "2.0", Error: &wireError{Code: codeParseError, Message: "parse error: " + err.Error()}})
			continue
		}
		reqCopy := req
		// initialize/shutdown mutate connection state and must be acked
		// before any later line is interpreted against it, so they run
		// inline on the reader goroutine rather than racing a handler pool
		// worker. Only tool handlers (tools/list, tools/call) run
		// concurrently up to the semaphore bound, per spec §5.
		if reqCopy.Method == "initialize" || reqCopy.Method == "shutdown" {
			s.handle(ctx, reqCopy)
			continue
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.handle(ctx, reqCopy)
		}()
	}
	s.wg.Wait()
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}

func (s *Server) handle(ctx context.Context, req Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
		return
	case "shutdown":
		s.state.Store(int32(stateShutdown))
		s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}})
		return
	case "tools/list":
		s.handleToolsList(req)
		return
	case "tools/call":
		s.handleToolsCall(ctx, req)
		return
	default:
		s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Error: &wireError{Code: codeMethodNotFound, Message: "unknown method: " + req.Method}})
	}
}

func (s *Server) handleInitialize(req Request) {
	var p initializeParams
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &p)
	}
	s.state.Store(int32(stateInitialized))
	s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Result: initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      map[string]any{"name": "mira", "version": Version},
	}})
}

func (s *Server) requireInitialized(req Request) bool {
	if connState(s.state.Load()) == stateUninitialized {
		s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Error: &wireError{Code: codeInvalidRequest, Message: "server not initialized"}})
		return false
	}
	return true
}

func (s *Server) handleToolsList(req Request) {
	if !s.requireInitialized(req) {
		return
	}
	tools := s.reg.List()
	out := make([]toolDescriptor, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolDescriptor{
			Name: t.Name, Description: t.Description,
			InputSchema: t.Schema, Annotations: t.Annotations,
		})
	}
	s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Result: toolsListResult{Tools: out}})
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) {
	if !s.requireInitialized(req) {
		return
	}
	var p toolsCallParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Error: &wireError{Code: codeInvalidParams, Message: "malformed tools/call params"}})
		return
	}
	tool, ok := s.reg.Get(p.Name)
	if !ok {
		s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Error: &wireError{Code: codeMethodNotFound, Message: "unknown tool: " + p.Name}})
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, defaultDeadline)
	defer cancel()

	result, rpcErr := s.runHandler(callCtx, tool, p.Arguments)
	if rpcErr != nil {
		s.log.Printf("tool %s failed: %s", p.Name, rpcErr.Error())
		s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Error: toWireError(rpcErr)})
		return
	}
	s.writeResponse(Response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

// runHandler invokes the tool handler and maps a context deadline/
// cancellation into the corresponding domain error kind, per spec §7.
func (s *Server) runHandler(ctx context.Context, tool Tool, args json.RawMessage) (any, *Error) {
	type out struct {
		result any
		err    *Error
	}
	done := make(chan out, 1)
	go func() {
		r, e := tool.Handler(ctx, args)
		done <- out{r, e}
	}()
	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &Error{Kind: KindTimeout, Message: "handler deadline exceeded"}
		}
		return nil, &Error{Kind: KindCancelled, Message: "request cancelled"}
	}
}

func (s *Server) writeResponse(resp Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		s.log.Printf("failed to marshal response: %v", err)
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintln(s.out, string(b))
}

// Version is set by cmd/mira before calling Serve.
var Version = "dev"
