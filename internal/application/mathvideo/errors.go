package mathvideo

import (
	"errors"
	"fmt"
)

// Stage 流水线阶段
type Stage string

const (
	StageSolve    Stage = "solve"
	StageGenerate Stage = "generate"
	StageExtract  Stage = "extract"
	StageRender   Stage = "render"
	StagePublish  Stage = "publish"
)

var (
	ErrEmptyProblem = errors.New("problem text is empty")
	ErrEmptyAnswer  = errors.New("solver returned an empty answer")
	ErrEmptyReply   = errors.New("empty llm response")
	// ErrSceneMissing 脚本里没有定义渲染器要找的场景类
	ErrSceneMissing = errors.New("script does not define the expected scene class")
)

// StageError 标记失败发生在哪个阶段
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf 返回错误所属阶段
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
