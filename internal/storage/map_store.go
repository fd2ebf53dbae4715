package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/logging"
	"github.com/dgraph-io/badger/v3"
)

// ErrMapNotFound карта с таким именем не сохранялась
var ErrMapNotFound = errors.New("storage: map not found")

const (
	mapPrefix  = "map:"
	metaPrefix = "meta:"
)

// MapStore хранилище карт в BadgerDB
type MapStore struct {
	db      *badger.DB
	dbPath  string
	codec   *codec
	logger  *logging.Logger
	mutex   sync.RWMutex
	isReady bool
}

// NewMapStore открывает хранилище карт в каталоге dataPath
func NewMapStore(dataPath string) (*MapStore, error) {
	dbPath := filepath.Join(dataPath, "maps")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB
	return openStore(opts, dbPath)
}

// NewMemoryMapStore открывает хранилище в памяти
func NewMemoryMapStore() (*MapStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openStore(opts, "")
}

func openStore(opts badger.Options, dbPath string) (*MapStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	c, err := newCodec()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MapStore{
		db:      db,
		dbPath:  dbPath,
		codec:   c,
		logger:  logging.GetStorageLogger(),
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (s *MapStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	s.codec.close()
	return s.db.Close()
}

// Save сохраняет карту под именем; повторное сохранение сохраняет ID карты
func (s *MapStore) Save(name string, m *gridmap.GridMap) (MapInfo, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return MapInfo{}, fmt.Errorf("хранилище не готово")
	}
	if name == "" {
		return MapInfo{}, fmt.Errorf("пустое имя карты")
	}

	doc := NewDocument(name, m)
	if prev, err := s.info(name); err == nil {
		doc.ID = prev.ID
	}

	data, err := s.codec.marshal(doc)
	if err != nil {
		return MapInfo{}, err
	}
	doc.SizeBytes = len(data)

	meta, err := json.Marshal(doc.MapInfo)
	if err != nil {
		return MapInfo{}, fmt.Errorf("ошибка сериализации заголовка: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(mapPrefix+name), data); err != nil {
			return err
		}
		return txn.Set([]byte(metaPrefix+name), meta)
	})
	if err != nil {
		return MapInfo{}, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	s.logger.Info("Карта %s сохранена: %dx%d, %d байт", name, doc.Width, doc.Height, doc.SizeBytes)
	return doc.MapInfo, nil
}

// Load загружает карту по имени
func (s *MapStore) Load(name string) (*gridmap.GridMap, MapInfo, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, MapInfo{}, fmt.Errorf("хранилище не готово")
	}

	data, err := s.get(mapPrefix + name)
	if err != nil {
		return nil, MapInfo{}, err
	}

	doc, err := s.codec.unmarshal(data)
	if err != nil {
		s.logger.Error("Карта %s повреждена: %v", name, err)
		return nil, MapInfo{}, err
	}
	m, err := doc.ToMap()
	if err != nil {
		s.logger.Error("Карта %s не восстановлена: %v", name, err)
		return nil, MapInfo{}, err
	}
	doc.SizeBytes = len(data)
	return m, doc.MapInfo, nil
}

// List возвращает заголовки всех карт, отсортированные по имени
func (s *MapStore) List() ([]MapInfo, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var infos []MapInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var info MapInfo
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			})
			if err != nil {
				s.logger.Error("Заголовок %s повреждён: %v", it.Item().Key(), err)
				continue
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete удаляет карту
func (s *MapStore) Delete(name string) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	if _, err := s.info(name); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(mapPrefix + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaPrefix + name))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// RunGC запускает сборку мусора журнала значений, пока она что-то освобождает
func (s *MapStore) RunGC(interval time.Duration, stop <-chan struct{}) {
	if s.dbPath == "" {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for s.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

func (s *MapStore) info(name string) (MapInfo, error) {
	data, err := s.get(metaPrefix + name)
	if err != nil {
		return MapInfo{}, err
	}
	var info MapInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return MapInfo{}, fmt.Errorf("ошибка десериализации заголовка: %w", err)
	}
	return info, nil
}

func (s *MapStore) get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMapNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return data, nil
}
