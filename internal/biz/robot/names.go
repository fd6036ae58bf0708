package robot

import (
	"math/rand"
)

var botNames = []string{
	"Дружище", "Братан", "Чувак", "Кент", "Напарник",
	"Товарищ", "Приятель", "Бывалый", "Земеля", "Коллега",
	"Зевака", "Компаньон", "Соратник", "Местный", "Мужик",
}

// Names 不放回地抽取 n 个机器人昵称
func Names(n int, rng *rand.Rand) []string {
	pool := append([]string(nil), botNames...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}
