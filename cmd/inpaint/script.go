package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script は CLI で再生する編集手順です。パスごとにストロークを描いて生成し、
// 次のパスは直前の結果を新しいベース画像として続けます。
type Script struct {
	Passes []Pass `yaml:"passes"`
}

// Pass は 1 回の生成に対応します。
type Pass struct {
	Prompt  string   `yaml:"prompt"`
	Strokes []Stroke `yaml:"strokes"`
}

// Stroke はドラッグ 1 回分の座標列です。Radius が 0 なら現在のブラシ半径を使います。
type Stroke struct {
	Radius float64      `yaml:"radius,omitempty"`
	Points [][2]float64 `yaml:"points"`
}

// Canvas はストロークの再生先です。*session.Session がこれを満たします。
type Canvas interface {
	SetBrushRadius(r float64) float64
	PointerDown(x, y float64) bool
	PointerMove(x, y float64) bool
	PointerUp()
}

// LoadScript は YAML のスクリプトを読み込みます。
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stroke script: %w", err)
	}
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse stroke script %s: %w", path, err)
	}
	if len(sc.Passes) == 0 {
		return nil, fmt.Errorf("stroke script %s has no passes", path)
	}
	return &sc, nil
}

// Replay はパスのストロークを順に描きます。空のストロークはエラーです。
func (p Pass) Replay(c Canvas) error {
	for i, st := range p.Strokes {
		if len(st.Points) == 0 {
			return fmt.Errorf("stroke %d has no points", i)
		}
		if st.Radius > 0 {
			c.SetBrushRadius(st.Radius)
		}
		first := st.Points[0]
		c.PointerDown(first[0], first[1])
		for _, pt := range st.Points[1:] {
			c.PointerMove(pt[0], pt[1])
		}
		c.PointerUp()
	}
	return nil
}
