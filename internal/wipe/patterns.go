package wipe

import (
	"crypto/rand"
	"fmt"
	"io"
)

// BlockSize размер блока паттерна, одинаковый для всех проходов
const BlockSize = 4096

// Method описание метода для сертификата
const Method = "4-pass: zero/random/ones/stamp"

// PatternTag определяет роль паттерна в последовательности проходов
type PatternTag string

const (
	PatternZero   PatternTag = "zero"
	PatternRandom PatternTag = "random"
	PatternOnes   PatternTag = "ones"
	PatternStamp  PatternTag = "stamp"
)

// PassOrder фиксированный порядок проходов
var PassOrder = []PatternTag{PatternZero, PatternRandom, PatternOnes, PatternStamp}

// Pattern блок, который тайлится по всей длине файла
type Pattern struct {
	Tag   PatternTag
	Block []byte
}

// PatternGenerator генерирует паттерны для одного сеанса затирания
type PatternGenerator struct {
	id     CertificateID
	random io.Reader
}

// NewPatternGenerator создает генератор со штампом id
func NewPatternGenerator(id CertificateID) *PatternGenerator {
	return &PatternGenerator{id: id, random: rand.Reader}
}

// Generate возвращает четыре паттерна в порядке PassOrder.
// Случайный блок читается заново при каждом вызове, то есть для каждого файла.
// Блоки взяты из пула, после использования их нужно вернуть через ReleasePatterns.
func (g *PatternGenerator) Generate(length int64) ([]Pattern, error) {
	if length < 0 {
		return nil, fmt.Errorf("отрицательная длина: %d", length)
	}
	if g.id == "" {
		return nil, fmt.Errorf("пустой идентификатор сертификата")
	}

	zero := getBlock()
	fillBlock(zero, 0x00)

	random := getBlock()
	if _, err := io.ReadFull(g.random, random); err != nil {
		putBlock(zero)
		putBlock(random)
		return nil, fmt.Errorf("ошибка генерации случайных данных: %w", err)
	}

	ones := getBlock()
	fillBlock(ones, 0xFF)

	stamp := getBlock()
	tile(stamp, []byte(g.id))

	return []Pattern{
		{Tag: PatternZero, Block: zero},
		{Tag: PatternRandom, Block: random},
		{Tag: PatternOnes, Block: ones},
		{Tag: PatternStamp, Block: stamp},
	}, nil
}

// ReleasePatterns возвращает блоки в пул (блоки обнуляются)
func ReleasePatterns(patterns []Pattern) {
	for _, p := range patterns {
		putBlock(p.Block)
	}
}

// tile заполняет dst повторениями unit, последний повтор обрезается
func tile(dst, unit []byte) {
	if len(unit) == 0 {
		return
	}
	for off := 0; off < len(dst); {
		off += copy(dst[off:], unit)
	}
}
