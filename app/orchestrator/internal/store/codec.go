package store

import (
	"encoding/json"
	"fmt"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
)

func encodeDescription(desc *model.ServiceDescription) ([]byte, error) {
	data, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("encode service %s: %w", desc.ID, err)
	}
	return data, nil
}

func decodeDescription(data []byte) (*model.ServiceDescription, error) {
	var desc model.ServiceDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("decode service: %w", err)
	}
	return &desc, nil
}
