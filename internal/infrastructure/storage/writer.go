package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
)

const (
	MagicHeader string = `DDRP` // 4 байта
	Version1    uint32 = 1

	FileExt = ".ddrp"
)

// ReplayFileHeader - это точное представление заголовка файла в памяти.
// binary.Write умеет писать это целиком, так как тут нет слайсов и строк, только массивы и числа.
type ReplayFileHeader struct {
	Magic        [4]byte // 4 байта
	Version      uint32  // 4 байта
	Seed         uint32  // 4 байта
	Timestamp    int64   // 8 байт
	ActionCount  int32   // 4 байта
	RollCount    int32   // 4 байта
	SessionIDLen uint16  // 2 байта
}

// ActionHeader - заголовок каждой записи действия.
type ActionHeader struct {
	Seq        int32  // 4
	ActionType uint8  // 1
	PayloadLen uint32 // 4
}

// RollHeader - заголовок записи броска. За ним идут метка, грани и теги.
type RollHeader struct {
	Kind       uint8 // 1
	LabelLen   uint8 // 1
	ValueCount uint8 // 1
	TagCount   uint8 // 1
	Modifier   int32 // 4
	Total      int32 // 4
}

type ReplayService struct {
	SaveDir string
}

// NewReplayService создает папку для реплеев, если ее нет.
func NewReplayService(dir string) (*ReplayService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create replay dir: %w", err)
	}
	return &ReplayService{SaveDir: dir}, nil
}

// Save пишет реплей в SaveDir и возвращает путь к файлу.
func (s *ReplayService) Save(session *domain.ReplaySession) (string, error) {
	filename := fmt.Sprintf("replay_%s_%d_%d%s", session.SessionID, session.Seed, session.Timestamp, FileExt)
	path := filepath.Join(s.SaveDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeBinary(w, session); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("flush replay: %w", err)
	}
	return path, nil
}

func writeBinary(w io.Writer, s *domain.ReplaySession) error {
	id := []byte(s.SessionID)
	if len(id) > math.MaxUint16 {
		return fmt.Errorf("session id too long: %d", len(id))
	}

	// 1. Подготавливаем и пишем ГЛОБАЛЬНЫЙ ЗАГОЛОВОК
	header := ReplayFileHeader{
		Version:      Version1,
		Seed:         s.Seed,
		Timestamp:    s.Timestamp,
		ActionCount:  int32(len(s.Actions)),
		RollCount:    int32(len(s.Rolls)),
		SessionIDLen: uint16(len(id)),
	}
	copy(header.Magic[:], MagicHeader) // Копируем строку в массив [4]byte

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(id); err != nil {
		return err
	}

	// 2. Пишем действия
	for _, act := range s.Actions {
		actHeader := ActionHeader{
			Seq:        int32(act.Seq),
			ActionType: uint8(act.Action),
			PayloadLen: uint32(len(act.Payload)),
		}
		if err := binary.Write(w, binary.LittleEndian, &actHeader); err != nil {
			return err
		}
		if len(act.Payload) > 0 {
			if _, err := w.Write(act.Payload); err != nil {
				return err
			}
		}
	}

	// 3. Пишем журнал бросков
	for i, rec := range s.Rolls {
		if err := writeRoll(w, rec); err != nil {
			return fmt.Errorf("roll %d: %w", i, err)
		}
	}
	return nil
}

// MarshalRoll - каноническая бинарная форма броска. По ней плейбек сверяет журналы.
func MarshalRoll(rec dice.RollRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeRoll(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRoll(w io.Writer, rec dice.RollRecord) error {
	if len(rec.Label) > math.MaxUint8 {
		return fmt.Errorf("label too long: %d", len(rec.Label))
	}
	if len(rec.Values) > math.MaxUint8 {
		return fmt.Errorf("too many values: %d", len(rec.Values))
	}
	if len(rec.Tags) > math.MaxUint8 {
		return fmt.Errorf("too many tags: %d", len(rec.Tags))
	}

	h := RollHeader{
		Kind:       uint8(rec.Kind),
		LabelLen:   uint8(len(rec.Label)),
		ValueCount: uint8(len(rec.Values)),
		TagCount:   uint8(len(rec.Tags)),
		Modifier:   int32(rec.Modifier),
		Total:      int32(rec.Total),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	if _, err := io.WriteString(w, rec.Label); err != nil {
		return err
	}

	if len(rec.Values) > 0 {
		values := make([]int32, len(rec.Values))
		for i, v := range rec.Values {
			values[i] = int32(v)
		}
		if err := binary.Write(w, binary.LittleEndian, values); err != nil {
			return err
		}
	}

	for _, tag := range rec.Tags {
		if len(tag) > math.MaxUint8 {
			return fmt.Errorf("tag too long: %d", len(tag))
		}
		if _, err := w.Write([]byte{uint8(len(tag))}); err != nil {
			return err
		}
		if _, err := io.WriteString(w, tag); err != nil {
			return err
		}
	}
	return nil
}
