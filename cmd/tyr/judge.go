package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tyr/internal/engine"
	"tyr/internal/engine/config"
	"tyr/internal/judge"
)

var (
	judgeShadowFlag         bool
	judgeAuditFlag          bool
	judgeFailOpenFlag       bool
	judgeNoFailOpenFlag     bool
	judgeCacheChecksFlag    bool
	judgeNoAllowChainedFlag bool
	judgeLLMModelFlag       string
	judgeLLMTimeoutFlag     string
	judgeLLMProviderFlag    string
)

var judgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Evaluate one PermissionRequest read from stdin",
	RunE:  runJudge,
}

func init() {
	judgeCmd.Flags().BoolVar(&judgeShadowFlag, "shadow", false, "log the decision but never steer the host")
	judgeCmd.Flags().BoolVar(&judgeAuditFlag, "audit", false, "log only, skip the pipeline, always abstain")
	judgeCmd.Flags().BoolVar(&judgeFailOpenFlag, "fail-open", false, "treat an abstain as allow")
	judgeCmd.Flags().BoolVar(&judgeNoFailOpenFlag, "no-fail-open", false, "treat an abstain as abstain, overriding config")
	judgeCmd.Flags().BoolVar(&judgeCacheChecksFlag, "cache-checks", true, "consult and populate the decision cache")
	judgeCmd.Flags().BoolVar(&judgeNoAllowChainedFlag, "no-allow-chained-commands", false, "disable the chained-commands provider for this invocation")
	judgeCmd.Flags().StringVar(&judgeLLMModelFlag, "llm-model", "", "override the configured LLM model")
	judgeCmd.Flags().StringVar(&judgeLLMTimeoutFlag, "llm-timeout", "", "override the configured LLM timeout (N[smhd])")
	judgeCmd.Flags().StringVar(&judgeLLMProviderFlag, "llm-provider", "", "override the configured LLM provider binary/backend name")
	rootCmd.AddCommand(judgeCmd)
}

func runJudge(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("%w: read stdin: %v", engine.ErrMalformedInput, err)
	}

	var req engine.PermissionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrMalformedInput, err)
	}
	if err := judge.ValidateRequest(&req); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rules, cleanupLog, err := openRules(req.Cwd)
	if err != nil {
		return err
	}
	defer cleanupLog()
	defer rules.Close()

	db, err := openStore()
	if err != nil {
		// Persistence errors must never block the hot path (spec §7): a
		// nil store degrades the engine to no cache and no audit log,
		// not a hard failure.
		db = nil
	} else {
		defer db.Close()
	}

	opts := judge.Options{
		Cwd:                  req.Cwd,
		SessionID:            req.SessionID,
		CacheChecks:          judgeCacheChecksFlag && db != nil,
		AllowChainedCommands: !judgeNoAllowChainedFlag,
		LLMModel:             judgeLLMModelFlag,
		LLMProvider:          judgeLLMProviderFlag,
	}
	if judgeLLMTimeoutFlag != "" {
		seconds, _, err := config.ParseRetentionSeconds(judgeLLMTimeoutFlag)
		if err != nil {
			return fmt.Errorf("%w: --llm-timeout: %v", engine.ErrFlagUsage, err)
		}
		opts.LLMTimeout = time.Duration(seconds) * time.Second
	}
	opts.Audit = judgeAuditFlag
	opts.Shadow = judgeShadowFlag
	if judgeNoFailOpenFlag {
		v := false
		opts.FailOpenOverride = &v
	} else if judgeFailOpenFlag {
		v := true
		opts.FailOpenOverride = &v
	}

	engineHandle := judge.Build(cfg, rules, db, nil)
	outcome, err := engineHandle.Judge(context.Background(), &req, opts, time.Now().UnixMilli())
	if err != nil {
		return err
	}

	if outcome.HasOutput {
		return json.NewEncoder(os.Stdout).Encode(outcome.Response)
	}
	return nil
}
