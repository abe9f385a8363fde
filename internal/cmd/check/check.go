// Package check implements the gate run for one commit: read the commit
// document, execute the pipeline, emit the verdict on stdout.
package check

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/LucerneSecurity/commitgate/pkg/audit"
	"github.com/LucerneSecurity/commitgate/pkg/config"
	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/LucerneSecurity/commitgate/pkg/metrics"
	"github.com/LucerneSecurity/commitgate/pkg/pipeline"
	"github.com/LucerneSecurity/commitgate/pkg/scanner"
	"github.com/LucerneSecurity/commitgate/pkg/scanner/rules"
	"github.com/LucerneSecurity/commitgate/pkg/semantic"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Exit codes are the CI contract: 0 admits the commit, 1 rejects it, 2
// means the gate itself could not judge.
const (
	ExitPass     = 0
	ExitFail     = 1
	ExitInternal = 2
)

const (
	auditAccessKeyEnv = "COMMITGATE_AUDIT_ACCESS_KEY"
	auditSecretKeyEnv = "COMMITGATE_AUDIT_SECRET_KEY"
)

type CheckOptions struct {
	config.GateOptions
	Input         string
	SemanticURL   string
	SemanticModel string
	RulesPath     string
	RulesURL      string
	AuditEndpoint string
	AuditBucket   string
	AuditPrefix   string
	AuditSSL      bool
	AuditDir      string
	Pushgateway   string
}

var options = CheckOptions{
	GateOptions: config.DefaultGateOptions(),
}
var maxDiffSize string

func NewCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Judge one commit and emit the PASS/FAIL verdict",
		Long: `Judge a single commit (message plus diff) against the secret pattern set,
the commit message format policy and the optional semantic reviewer.

The verdict is a single JSON object on stdout; all logs go to stderr.
Exit code 0 admits the commit, 1 rejects it, 2 means the gate could not
judge (bad input or configuration).`,
		Example: `
# Judge the commit document supplied by the CI job on stdin
commitgate check < commit.json

# Judge from a file, keep audit records locally
commitgate check --input commit.json --audit-dir /var/lib/commitgate/audit

# Full wiring: remote rules, object storage audit trail, Pushgateway metrics
commitgate check --input commit.json \
  --rules-url https://security.internal/rules.yml \
  --audit-endpoint minio.internal:9000 --audit-bucket commitgate-audit \
  --pushgateway https://pushgateway.internal:9091
		`,
		Run: Check,
	}

	checkCmd.Flags().StringVarP(&options.Input, "input", "i", "-", "Commit document file, '-' for stdin")
	checkCmd.Flags().BoolVar(&options.EnforceFormat, "enforce-format", options.EnforceFormat, "Fail the run when the commit message violates the format policy")
	checkCmd.Flags().DurationVar(&options.SemanticTimeout, "semantic-timeout", options.SemanticTimeout, "Timeout for the single semantic service call")
	checkCmd.Flags().DurationVar(&options.IOTimeout, "io-timeout", options.IOTimeout, "Timeout for the audit write and the metrics push")
	checkCmd.Flags().StringVar(&options.SemanticURL, "semantic-url", "", "OpenAI-compatible base URL for the semantic stage")
	checkCmd.Flags().StringVar(&options.SemanticModel, "semantic-model", "", "Model for the semantic stage (default "+semantic.DefaultModel+")")
	checkCmd.Flags().StringVar(&options.RulesPath, "rules", "", "Additional rules YAML file (secrets-patterns-db layout)")
	checkCmd.Flags().StringVar(&options.RulesURL, "rules-url", "", "Additional rules bundle URL, fetched before the run")
	checkCmd.Flags().BoolVar(&options.TruffleHog, "trufflehog", options.TruffleHog, "Enable the TruffleHog detector pass over added lines")
	checkCmd.Flags().BoolVar(&options.TruffleHogVerification, "trufflehog-verification", options.TruffleHogVerification, "Verify TruffleHog findings against the credential issuer, verified hits count as HIGH")
	checkCmd.Flags().StringVar(&maxDiffSize, "max-diff-size", "10MB", "Max commit diff size to judge e.g. 5MB, 1GB")
	checkCmd.Flags().StringVar(&options.AuditEndpoint, "audit-endpoint", "", "S3-compatible endpoint for audit records e.g. minio.internal:9000")
	checkCmd.Flags().StringVar(&options.AuditBucket, "audit-bucket", "commitgate-audit", "Bucket for audit records")
	checkCmd.Flags().StringVar(&options.AuditPrefix, "audit-prefix", "runs/", "Object key prefix for audit records")
	checkCmd.Flags().BoolVar(&options.AuditSSL, "audit-ssl", true, "Use TLS for the audit endpoint")
	checkCmd.Flags().StringVar(&options.AuditDir, "audit-dir", "", "Local directory for audit records when no endpoint is set")
	checkCmd.Flags().StringVar(&options.Pushgateway, "pushgateway", "", "Prometheus Pushgateway base URL for run metrics")

	return checkCmd
}

func Check(cmd *cobra.Command, args []string) {
	if code := run(cmd.Context(), os.Stdin, os.Stdout); code != ExitPass {
		os.Exit(code)
	}
}

// run executes one gate run end to end and returns the process exit
// code. The reader and writer are injected so tests can drive the whole
// command without a process boundary. Every path emits exactly one
// verdict document on stdout.
func run(ctx context.Context, stdin io.Reader, stdout io.Writer) int {
	maxDiffBytes, err := config.ParseMaxDiffSize(maxDiffSize)
	if err != nil {
		return internalFailure(stdout, err, "Failed parsing max-diff-size flag")
	}

	if err := config.ValidateTimeout(options.SemanticTimeout, "semantic timeout"); err != nil {
		return internalFailure(stdout, err, "Invalid semantic-timeout flag")
	}
	if err := config.ValidateTimeout(options.IOTimeout, "io timeout"); err != nil {
		return internalFailure(stdout, err, "Invalid io-timeout flag")
	}

	if options.SemanticURL != "" {
		if err := config.ValidateURL(options.SemanticURL, "semantic service URL"); err != nil {
			return internalFailure(stdout, err, "Invalid semantic-url flag")
		}
	}
	if options.RulesURL != "" {
		if err := config.ValidateURL(options.RulesURL, "rules bundle URL"); err != nil {
			return internalFailure(stdout, err, "Invalid rules-url flag")
		}
	}
	if options.Pushgateway != "" {
		if err := config.ValidateURL(options.Pushgateway, "Pushgateway URL"); err != nil {
			return internalFailure(stdout, err, "Invalid pushgateway flag")
		}
	}

	input, err := readInput(stdin, maxDiffBytes)
	if err != nil {
		return internalFailure(stdout, err, "Cannot judge commit document")
	}

	loadedRules, err := rules.Load(options.RulesPath, options.RulesURL)
	if err != nil {
		return internalFailure(stdout, err, "Failed loading rules")
	}

	auditStore, err := buildAuditStore()
	if err != nil {
		return internalFailure(stdout, err, "Failed configuring audit store")
	}

	pipe := pipeline.NewPipeline(pipeline.Options{
		Scanner: scanner.NewScanner(scanner.Options{
			Rules:                  loadedRules,
			MaxScanGoRoutines:      options.MaxScanGoRoutines,
			TruffleHog:             options.TruffleHog,
			TruffleHogVerification: options.TruffleHogVerification,
		}),
		Analyzer: semantic.NewAnalyzer(semantic.NewClientFromEnv(options.SemanticURL), semantic.Options{
			Model:   options.SemanticModel,
			Timeout: options.SemanticTimeout,
		}),
		AuditStore:    auditStore,
		Metrics:       metrics.NewReporter(options.Pushgateway),
		EnforceFormat: options.EnforceFormat,
		IOTimeout:     options.IOTimeout,
	})

	verdict := pipe.Run(ctx, input)
	emitVerdict(stdout, verdict)

	if verdict.Status == gate.StatusFail {
		return ExitFail
	}
	return ExitPass
}

// readInput loads and decodes the commit document. The raw read is
// capped before decoding: JSON escaping can double the diff on the wire,
// plus headroom for the message and wrapper metadata.
func readInput(stdin io.Reader, maxDiffBytes int64) (gate.AnalysisInput, error) {
	reader := stdin
	if options.Input != "" && options.Input != "-" {
		// #nosec G304 - User-provided input file path via --input flag, user controls their own filesystem
		file, err := os.Open(options.Input)
		if err != nil {
			return gate.AnalysisInput{}, &gate.InputError{Reason: "cannot read commit document: " + err.Error()}
		}
		defer file.Close()
		reader = file
	}

	rawCap := maxDiffBytes*2 + 1024*1024
	data, err := io.ReadAll(io.LimitReader(reader, rawCap+1))
	if err != nil {
		return gate.AnalysisInput{}, &gate.InputError{Reason: "cannot read commit document: " + err.Error()}
	}
	if int64(len(data)) > rawCap {
		return gate.AnalysisInput{}, &gate.InputError{Reason: "commit document exceeds the size cap (" + maxDiffSize + ")"}
	}

	input, err := gate.Decode(data)
	if err != nil {
		return gate.AnalysisInput{}, err
	}

	if int64(len(input.CommitDiff)) > maxDiffBytes {
		return gate.AnalysisInput{}, &gate.InputError{Reason: "commit diff exceeds the size cap (" + maxDiffSize + ")"}
	}

	return input, nil
}

// buildAuditStore selects the audit sink: S3-compatible object storage
// when an endpoint is set, a local directory as fallback, none otherwise.
func buildAuditStore() (audit.Store, error) {
	if options.AuditEndpoint != "" {
		return audit.NewObjectStore(audit.ObjectStoreOptions{
			Endpoint:  options.AuditEndpoint,
			Bucket:    options.AuditBucket,
			Prefix:    options.AuditPrefix,
			UseSSL:    options.AuditSSL,
			AccessKey: os.Getenv(auditAccessKeyEnv),
			SecretKey: os.Getenv(auditSecretKeyEnv),
		})
	}

	if options.AuditDir != "" {
		return audit.NewDirStore(options.AuditDir)
	}

	return nil, nil
}

// verdictDocument is the stdout contract: exactly status and reason,
// parsed by CI wrapper scripts.
type verdictDocument struct {
	Status gate.Status `json:"status"`
	Reason string      `json:"reason"`
}

func emitVerdict(stdout io.Writer, verdict gate.Verdict) {
	document := verdictDocument{Status: verdict.Status, Reason: verdict.Reason}
	if err := json.NewEncoder(stdout).Encode(document); err != nil {
		log.Error().Err(err).Msg("Failed writing verdict")
	}
}

// internalFailure reports a run the gate could not judge. The document
// still says FAIL; the exit code is what distinguishes "rejected" from
// "gate broken".
func internalFailure(stdout io.Writer, err error, msg string) int {
	log.Error().Err(err).Msg(msg)
	emitVerdict(stdout, gate.Verdict{Status: gate.StatusFail, Reason: err.Error()})
	return ExitInternal
}
