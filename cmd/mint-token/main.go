package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"

	"github.com/inkwell-cms/inkwell/internal/auth"
)

func mint(secret, sub string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Error loading .env file")
	}

	secret := os.Getenv(auth.SecretEnv)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "%s is not set\n", auth.SecretEnv)
		os.Exit(1)
	}

	promptStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	fmt.Println("Enter user ids one by one. Type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(promptStyle.Render("User id: "))

		if !scanner.Scan() {
			break
		}

		sub := strings.TrimSpace(scanner.Text())
		if sub == "" {
			continue
		}
		if sub == "quit" {
			break
		}

		token, err := mint(secret, sub, 24*time.Hour)
		if err != nil {
			fmt.Println(outputStyle.Render("Error: " + err.Error()))
			continue
		}

		fmt.Println(outputStyle.Render("Token: " + token))
	}

	if err := scanner.Err(); err != nil {
		fmt.Println("Error reading input:", err)
	}
}
