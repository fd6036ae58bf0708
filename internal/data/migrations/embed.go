package migrations

import "embed"

// FS sqlite 建表脚本, 按文件名顺序执行
//
//go:embed *.sql
var FS embed.FS
