package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tevino/abool/v2"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/vm"
)

const lspName = "quill-lsp"

var log = commonlog.GetLogger("quill.server")

// LspServer compiles and evaluates open documents, publishing compile and
// run-time errors as diagnostics and the result on hover.
type LspServer struct {
	worker   *VMWorker
	shutDown *abool.AtomicBool // set by the shutdown request

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server with its own VM.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		worker:   NewVMWorker(vm.NewVM()),
		shutDown: abool.New(),
		docs:     make(map[string]string),
		version:  version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	defer s.worker.Stop()
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("quill LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.shutDown.Set()
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	if s.shutDown.IsSet() {
		return nil, ErrShutDown.New()
	}

	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	a := s.analyze(text)
	if a.chunk == nil {
		return nil, nil
	}

	var b strings.Builder
	if a.runErr != nil {
		fmt.Fprintf(&b, "**error:** %s\n\n", a.runErr)
	} else {
		fmt.Fprintf(&b, "**= %s**\n\n", a.result)
	}
	b.WriteString("```\n")
	b.WriteString(a.chunk.Disassemble())
	b.WriteString("```\n")

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}, nil
}

// --- Analysis ---

// analysis is the outcome of compiling and running one document.
type analysis struct {
	chunk       *bytecode.Chunk // nil when compilation failed
	result      bytecode.Value
	runErr      error
	diagnostics []protocol.Diagnostic
}

// analyze compiles text and, when that succeeds, runs it on the worker.
// Compile diagnostics and a run-time error both become LSP diagnostics.
func (s *LspServer) analyze(text string) analysis {
	chunk, err := compiler.Compile(text)
	if err != nil {
		return analysis{diagnostics: compileDiagnostics(text, compiler.Diagnostics(err))}
	}

	eval, err := s.worker.Evaluate(chunk)
	if err != nil {
		log.Errorf("evaluation failed: %s", err)
		return analysis{chunk: chunk, runErr: err}
	}

	a := analysis{chunk: chunk, result: eval.Result, runErr: eval.Err}
	if eval.Err != nil {
		line := chunk.Line(eval.Offset)
		if line == 0 {
			line = 1
		}
		a.diagnostics = []protocol.Diagnostic{
			newDiagnostic(text, line, protocol.DiagnosticSeverityError, eval.Err.Error()),
		}
	}
	return a
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	if s.shutDown.IsSet() {
		log.Debugf("%s: ignoring change after shutdown", uri)
		return
	}
	diagnostics := s.analyze(text).diagnostics
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	log.Debugf("%s: %d diagnostic(s)", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// compileDiagnostics converts compiler diagnostics into LSP diagnostics
// spanning the reported line.
func compileDiagnostics(text string, diags []compiler.Diagnostic) []protocol.Diagnostic {
	result := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		message := d.Message
		if d.Where != "" {
			message = fmt.Sprintf("%s: %s", d.Where, d.Message)
		}
		result = append(result, newDiagnostic(text, d.Line, protocol.DiagnosticSeverityError, message))
	}
	return result
}

func newDiagnostic(text string, line int, severity protocol.DiagnosticSeverity, message string) protocol.Diagnostic {
	source := lspName
	return protocol.Diagnostic{
		Range:    lineRange(text, line),
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

// lineRange returns the range covering 1-based line of text. Lines past
// the end of the document collapse to an empty range on the last line.
func lineRange(text string, line int) protocol.Range {
	lines := strings.Split(text, "\n")
	idx := line - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(lines) {
		idx = len(lines) - 1
	}
	content := strings.TrimSuffix(lines[idx], "\r")
	// LSP character offsets count UTF-16 code units.
	width := protocol.UInteger(len(utf16.Encode([]rune(content))))
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(idx), Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(idx), Character: width},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
