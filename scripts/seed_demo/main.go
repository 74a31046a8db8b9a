package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/pklatka/modernblog/internal/config"
	"github.com/pklatka/modernblog/internal/db"
)

// 演示数据生成器
func main() {
	_ = godotenv.Load()

	// 初始化数据库
	cfg := config.Load()
	gdb, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成演示数据...")

	summary, err := seedDemo(gdb, cfg.SiteBaseURL)
	if err != nil {
		log.Fatal("生成演示数据失败:", err)
	}
	if summary.Skipped {
		fmt.Println("文章已存在，跳过生成")
		return
	}

	fmt.Println("演示数据生成完成！")
	fmt.Printf("文章: %d 篇\n", summary.Posts)
	fmt.Printf("评论: %d 条\n", summary.Comments)
	fmt.Printf("订阅者: %d 个\n", summary.Subscribers)
}
