package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

func TestParseClassificationKey(t *testing.T) {
	tests := []struct {
		key      string
		expected types.ClassificationCode
	}{
		{"azul", types.ClassBlue},
		{"AZUL", types.ClassBlue},
		{"verde", types.ClassGreen},
		{"Amarelo", types.ClassYellow},
		{"vermelho", types.ClassRed},
		{"semTriagem", types.ClassUntriaged},
		{"sem_triagem", types.ClassUntriaged},
		{"NAO_TRIADO", types.ClassUntriaged},
		{"naoTriado", types.ClassUntriaged},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			code, ok := model.ParseClassificationKey(tt.key)
			gt.True(t, ok)
			gt.Equal(t, code, tt.expected)
		})
	}

	t.Run("unknown key", func(t *testing.T) {
		_, ok := model.ParseClassificationKey("laranja")
		gt.False(t, ok)
	})
}

func TestClassificationsOrder(t *testing.T) {
	list := model.Classifications()
	gt.Equal(t, len(list), 5)
	for i := 1; i < len(list); i++ {
		gt.True(t, list[i-1].Rank < list[i].Rank)
	}
	gt.Equal(t, list[0].Code, types.ClassRed)

	// returned slice is a copy
	list[0].Label = "changed"
	gt.Equal(t, model.ClassificationOf(types.ClassRed).Label, "Emergência")
}

func TestClassificationOf(t *testing.T) {
	gt.Equal(t, model.ClassificationOf(types.ClassBlue).BackendKey, "azul")
	gt.Equal(t, model.ClassificationOf(types.ClassYellow).Rank, 2)
	gt.Equal(t, model.ClassificationOf("UNKNOWN").Code, types.ClassUntriaged)
}
