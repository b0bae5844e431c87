package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cinegen-web/internal/domain"
)

// Stage はワークフロー実行中の段階です。
// Idle → StyleAnalysis → ParallelSceneImaging → MasterPromptSynthesis → Done の順に進み、
// どの段階からでも ErrorTerminal に遷移します。StyleAnalysis と ParallelSceneImaging は省略されることがあります。
type Stage int

const (
	StageIdle Stage = iota
	StageStyleAnalysis
	StageParallelSceneImaging
	StageMasterPromptSynthesis
	StageDone
	StageErrorTerminal
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageStyleAnalysis:
		return "style_analysis"
	case StageParallelSceneImaging:
		return "parallel_scene_imaging"
	case StageMasterPromptSynthesis:
		return "master_prompt_synthesis"
	case StageDone:
		return "done"
	case StageErrorTerminal:
		return "error_terminal"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// execution は一回のワークフロー実行の状態 (段階、開始時刻、ロガー) を保持します。
type execution struct {
	orchestrator *StoryboardOrchestrator
	kind         domain.ArtifactKind
	logger       *slog.Logger

	stage      Stage
	stages     []Stage
	startTime  time.Time
	stageStart time.Time

	resolvedSafeTitle string
}

func (o *StoryboardOrchestrator) newExecution(ctx context.Context, kind domain.ArtifactKind) *execution {
	now := o.now()
	e := &execution{
		orchestrator: o,
		kind:         kind,
		logger:       slog.With("kind", string(kind)),
		stage:        StageIdle,
		stages:       []Stage{StageIdle},
		startTime:    now,
		stageStart:   now,
	}
	e.logger.InfoContext(ctx, "Workflow started")
	return e
}

// enter は次の段階へ遷移し、直前の段階の所要時間を記録します。
func (e *execution) enter(ctx context.Context, next Stage) {
	now := e.orchestrator.now()
	e.logger.InfoContext(ctx, "Stage transition",
		"from", e.stage.String(),
		"to", next.String(),
		"duration", now.Sub(e.stageStart).Round(time.Millisecond).String(),
	)
	e.stage = next
	e.stages = append(e.stages, next)
	e.stageStart = now

	if next == StageDone {
		e.logger.InfoContext(ctx, "Workflow completed",
			"total_duration", now.Sub(e.startTime).Round(time.Millisecond).String(),
		)
	}
}

// fail は ErrorTerminal に遷移し、失敗した段階名を付けてエラーを返します。
// 呼び出し側の前提条件違反以外はエラー通知も送ります。
func (e *execution) fail(ctx context.Context, title string, err error) error {
	failed := e.stage
	e.stage = StageErrorTerminal
	e.stages = append(e.stages, StageErrorTerminal)
	e.logger.ErrorContext(ctx, "Workflow failed", "stage", failed.String(), "error", err)

	if !errors.Is(err, domain.ErrInvalidRequest) {
		e.orchestrator.notifyError(ctx, e.kind, title, err)
	}
	return fmt.Errorf("%s failed: %w", failed, err)
}
