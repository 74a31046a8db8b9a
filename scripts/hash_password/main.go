package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pklatka/modernblog/internal/auth"
)

// 生成 ADMIN_PASSWORD_HASH 使用的 bcrypt 哈希
func main() {
	var password string
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "Admin password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatal("读取密码失败:", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if len(password) < 8 {
		log.Fatal("密码至少需要 8 个字符")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal("密码加密失败:", err)
	}

	fmt.Println(hashed)
	fmt.Fprintln(os.Stderr, "将以上内容写入 ADMIN_PASSWORD_HASH")
}
