package main

import (
	"os"
)

// 查看 / 导入 / 导出已处理链接集合的小工具
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
