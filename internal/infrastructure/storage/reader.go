package storage

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
)

var ErrInvalidMagic = errors.New("invalid magic")

func (s *ReplayService) Load(path string) (*domain.ReplaySession, error) {
	return LoadFile(path)
}

// LoadFile читает реплей без сервиса (режим плейбека в cmd/server).
func LoadFile(path string) (*domain.ReplaySession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readBinary(bufio.NewReader(f))
}

func readBinary(r io.Reader) (*domain.ReplaySession, error) {
	// 1. Читаем заголовок целиком
	var header ReplayFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Валидация
	if string(header.Magic[:]) != MagicHeader {
		return nil, ErrInvalidMagic
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}
	if header.ActionCount < 0 || header.RollCount < 0 {
		return nil, fmt.Errorf("corrupt header: %d actions, %d rolls", header.ActionCount, header.RollCount)
	}

	id := make([]byte, header.SessionIDLen)
	if _, err := io.ReadFull(r, id); err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}

	session := &domain.ReplaySession{
		SessionID: string(id),
		Seed:      header.Seed,
		Timestamp: header.Timestamp,
		Actions:   make([]domain.ReplayAction, header.ActionCount),
		Rolls:     make([]dice.RollRecord, header.RollCount),
	}

	// 2. Читаем Actions
	for i := range session.Actions {
		var ah ActionHeader
		if err := binary.Read(r, binary.LittleEndian, &ah); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}

		act := domain.ReplayAction{
			Seq:     int(ah.Seq),
			Action:  domain.ActionType(ah.ActionType),
			Payload: json.RawMessage{},
		}
		if ah.PayloadLen > 0 {
			act.Payload = make([]byte, ah.PayloadLen)
			if _, err := io.ReadFull(r, act.Payload); err != nil {
				return nil, fmt.Errorf("action %d payload: %w", i, err)
			}
		}
		session.Actions[i] = act
	}

	// 3. Читаем журнал бросков
	for i := range session.Rolls {
		rec, err := readRoll(r)
		if err != nil {
			return nil, fmt.Errorf("roll %d: %w", i, err)
		}
		session.Rolls[i] = rec
	}

	return session, nil
}

func readRoll(r io.Reader) (dice.RollRecord, error) {
	var h RollHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return dice.RollRecord{}, err
	}

	label := make([]byte, h.LabelLen)
	if _, err := io.ReadFull(r, label); err != nil {
		return dice.RollRecord{}, err
	}

	rec := dice.RollRecord{
		Kind:     dice.Kind(h.Kind),
		Label:    string(label),
		Modifier: int(h.Modifier),
		Total:    int(h.Total),
	}

	if h.ValueCount > 0 {
		values := make([]int32, h.ValueCount)
		if err := binary.Read(r, binary.LittleEndian, values); err != nil {
			return dice.RollRecord{}, err
		}
		rec.Values = make([]int, len(values))
		for i, v := range values {
			rec.Values[i] = int(v)
		}
	}

	for i := uint8(0); i < h.TagCount; i++ {
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return dice.RollRecord{}, err
		}
		tag := make([]byte, n[0])
		if _, err := io.ReadFull(r, tag); err != nil {
			return dice.RollRecord{}, err
		}
		rec.Tags = append(rec.Tags, string(tag))
	}
	return rec, nil
}
