package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/artifact"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/computerdriver"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/config"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/finalize"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/handler"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/httpclient"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/jobctx"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm/anthropicbridge"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm/openairesponses"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/modelcall"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/objectstore"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/orchestrator"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/recordstore"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/shellrunner"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/sms"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/tracking"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/wiring"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/workflowtemplate"
)

// app bundles every composition-root collaborator a command needs, built
// once from environment configuration.
type app struct {
	cfg       config.Config
	records   *recordstore.SQLiteStore
	objects   ports.ObjectStore
	orch      *orchestrator.Orchestrator
	finalizer *finalize.Finalizer
}

func newApp() (*app, error) {
	cfg := config.Load()
	if recordStoreDSN != "" {
		cfg.RecordStoreDSN = recordStoreDSN
	}

	records, err := recordstore.Open(cfg.RecordStoreDSN)
	if err != nil {
		return nil, fmt.Errorf("wiring: open record store: %w", err)
	}
	if cfg.WorkflowTemplatesDir != "" {
		if err := seedWorkflowTemplates(context.Background(), records, cfg.WorkflowTemplatesDir); err != nil {
			return nil, fmt.Errorf("wiring: seed workflow templates: %w", err)
		}
	}

	objects, err := buildObjectStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wiring: open object store: %w", err)
	}

	objectPutter, ok := objects.(objectPutterWithHead)
	if !ok {
		return nil, fmt.Errorf("wiring: object store %T does not support HeadExists", objects)
	}

	httpClient := httpclient.New(httpclient.WithTimeout(cfg.WebhookTriggerTimeout))
	imageHTTPClient := &http.Client{Timeout: cfg.ImageDownloadTimeout}

	provider, err := buildModelProvider(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	artifactSvc := artifact.New(objects, records)
	if cfg.CDNDomain != "" {
		artifactSvc.OwnBucketHosts = []string{cfg.CDNDomain}
	}

	shellRoot := cfg.ShellExecutorWorkRoot
	if shellRoot == "" {
		shellRoot = "/work"
	}
	shellRunner, err := shellrunner.New(shellRoot)
	if err != nil {
		return nil, fmt.Errorf("wiring: init shell runner: %w", err)
	}

	var newComputerDriver func() ports.ComputerDriver
	if cfg.CUADockerAutoStart {
		newComputerDriver = func() ports.ComputerDriver {
			return computerdriver.New(computerdriver.Config{
				ContainerName: cfg.CUADockerContainerName,
				VNCDisplay:    cfg.CUADockerVNCDisplay,
				AutoStart:     cfg.CUADockerAutoStart,
				StopOnCleanup: cfg.CUADockerStopOnCleanup,
			})
		}
	}

	dispatcher := &modelcall.Dispatcher{
		Provider:          provider,
		NewComputerDriver: newComputerDriver,
		UploadScreenshot: func(ctx context.Context, png []byte) (string, error) {
			tenantID, jobID := jobctx.From(ctx)
			art, err := artifactSvc.Store(ctx, tenantID, jobID, screenshotName(), png, "image/png")
			if err != nil {
				return "", err
			}
			return art.PublicURL, nil
		},
		Runner:        shellRunner,
		DownloadImage: wiring.NewDataURLDownloader(imageHTTPClient),
	}

	handlerDeps := handler.Deps{
		Artifacts:       &wiring.ArtifactStoreAdapter{Service: artifactSvc},
		Objects:         objectPutter,
		Provider:        dispatcher,
		Shell:           &wiring.ShellExecerAdapter{Runner: shellRunner, TimeoutMs: cfg.ShellBatchTimeout.Milliseconds()},
		Webhook:         &wiring.WebhookSender{Client: httpClient},
		Workflows:       &wiring.WorkflowGateway{Records: records, HTTP: httpClient, PublicBaseURL: cfg.CDNDomain},
		Template:        wiring.Templater{},
		Usage:           records,
		ImageDownloader: wiring.NewImageDownloader(imageHTTPClient),
		Config: handler.Config{
			WebhookTriggerTimeout: cfg.WebhookTriggerTimeout,
			S3AllowedBuckets:      cfg.ShellS3UploadAllowedBuckets,
			PublicWebhookBaseURL:  cfg.CDNDomain,
		},
	}
	registry := handler.NewRegistry(handlerDeps)

	traceStore := newTraceStore(objects, records)

	// buildSmsSender returns a typed *sms.HTTPGateway that is nil when no
	// gateway is configured; only assign it into the interface field when
	// non-nil; otherwise an interface holding a nil pointer is not itself
	// nil and finalize's "no SMS sender configured" check would misfire.
	var smsSender finalize.SmsSender
	if gw := buildSmsSender(httpClient); gw != nil {
		smsSender = gw
	}

	finalizer := finalize.New(finalize.Deps{
		Artifacts: artifactSvc,
		Provider:  dispatcher,
		Webhook:   &wiring.WebhookSender{Client: httpClient},
		SMS:       smsSender,
		Notifier:  records,
		Tracking:  tracking.New(trackingScript(cfg)),
		Config:    finalize.Config{DeliveryTimeout: cfg.WebhookDeliveryTimeout},
	}, traceStore)

	orch := orchestrator.New(records, traceStore, registry, finalizer, orchestrator.Config{
		StepTimeout: cfg.ToolLoopTimeout,
	})

	return &app{
		cfg:       cfg,
		records:   records,
		objects:   objects,
		orch:      orch,
		finalizer: finalizer,
	}, nil
}

// objectPutterWithHead is the subset of ports.ObjectStore plus HeadExists
// that the s3_upload handler needs; both reference object stores satisfy
// it.
type objectPutterWithHead interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	HeadExists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}

func buildObjectStore(cfg config.Config) (ports.ObjectStore, error) {
	if cfg.ObjectStoreBucket == "" {
		root := objectStorePath
		if root == "" {
			root = "./data/objects"
		}
		return objectstore.NewLocalStore(root, cfg.CDNDomain)
	}
	return objectstore.NewS3Store(objectstore.S3Config{
		Bucket:    cfg.ObjectStoreBucket,
		Region:    cfg.ObjectStoreRegion,
		CDNDomain: cfg.CDNDomain,
	})
}

func buildModelProvider(cfg config.Config, httpClient *httpclient.Client) (ports.ModelProvider, error) {
	if cfg.AnthropicAPIKey != "" {
		return anthropicbridge.New(cfg.AnthropicAPIKey)
	}
	if cfg.ModelProviderBaseURL != "" {
		return openairesponses.New(httpClient, cfg.ModelProviderBaseURL, cfg.ModelProviderAPIKey), nil
	}
	return nil, fmt.Errorf("wiring: no model provider configured (set ANTHROPIC_API_KEY or MODEL_PROVIDER_BASE_URL)")
}

func buildSmsSender(httpClient *httpclient.Client) *sms.HTTPGateway {
	endpoint := getenvOrEmpty("SMS_GATEWAY_ENDPOINT")
	if endpoint == "" {
		return nil
	}
	return sms.New(httpClient, endpoint, nil)
}

func trackingScript(cfg config.Config) string {
	if cfg.CDNDomain == "" {
		return ""
	}
	return `(function(){var s=document.createElement('script');s.src='https://` + cfg.CDNDomain + `/t.js';document.head.appendChild(s);})();`
}

func screenshotName() string {
	return "screenshot-" + randomSuffix() + ".png"
}

// seedWorkflowTemplates loads every YAML workflow template in dir and
// upserts it into the record store, for running locally without a
// workflow-authoring UI.
func seedWorkflowTemplates(ctx context.Context, records *recordstore.SQLiteStore, dir string) error {
	workflows, err := workflowtemplate.LoadDir(dir)
	if err != nil {
		return err
	}
	for _, wf := range workflows {
		if wf.WorkflowID == "" {
			return fmt.Errorf("workflow template missing workflow_id")
		}
		if err := records.PutWorkflow(ctx, wf); err != nil {
			return fmt.Errorf("seed workflow %s: %w", wf.WorkflowID, err)
		}
	}
	return nil
}
