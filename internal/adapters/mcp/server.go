package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
	"github.com/kirillkom/ionmode-enricher/internal/core/ports"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/adducttable"
)

const (
	serverName      = "ionmode-enricher"
	serverVersion   = "1.0.0"
	deriveToolName  = "derive_ionmode"
	argAdduct       = "adduct"
	argIonmode      = "ionmode"
	argAdductSource = "adducts_source"
)

type Server struct {
	deriver       ports.IonmodeDeriver
	defaultSource string
	logger        *slog.Logger
}

func New(deriver ports.IonmodeDeriver, defaultSource string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		deriver:       deriver,
		defaultSource: defaultSource,
		logger:        logger,
	}
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	srv.AddTool(deriveTool(), s.handleDerive)
	return srv
}

func deriveTool() mcp.Tool {
	return mcp.NewTool(deriveToolName,
		mcp.WithDescription("Derive the ionization mode (positive, negative or n/a) of a spectrum from its adduct."),
		mcp.WithString(argAdduct,
			mcp.Description("Precursor adduct, e.g. [M+H]+. Cleaned to canonical form before lookup."),
		),
		mcp.WithString(argIonmode,
			mcp.Description("Current ionmode if known. positive and negative are kept as-is."),
		),
		mcp.WithString(argAdductSource,
			mcp.Description("Stored adduct table name, e.g. lab.csv, or \"default\". Empty selects the server's configured table."),
		),
	)
}

type deriveResult struct {
	Adduct  string `json:"adduct,omitempty"`
	Ionmode string `json:"ionmode"`
}

func (s *Server) handleDerive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metadata := map[string]any{}
	if adduct := req.GetString(argAdduct, ""); adduct != "" {
		metadata[domain.KeyAdduct] = adduct
	}
	if ionmode := req.GetString(argIonmode, ""); ionmode != "" {
		metadata[domain.KeyIonmode] = ionmode
	}

	source, err := adducttable.RequestedSource(req.GetString(argAdductSource, ""), s.defaultSource)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	derived, err := s.deriver.Derive(ctx, domain.NewRecord("", metadata), source)
	if err != nil {
		s.logger.Warn("mcp_derive_failed", "source", source, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := deriveResult{}
	result.Adduct, _ = derived.GetString(domain.KeyAdduct)
	result.Ionmode, _ = derived.GetString(domain.KeyIonmode)

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
