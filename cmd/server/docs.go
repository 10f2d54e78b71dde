package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Grocery Demand Forecast API
// @version         1.0.0
// @description     Per-store, per-product demand prediction with confidence intervals.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
