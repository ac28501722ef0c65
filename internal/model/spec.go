package model

type Spec struct {
	Info       Info
	Servers    []Server
	Operations []Operation
}

type Info struct {
	Title       string
	Description string
	Version     string
}

type Server struct {
	URL         string
	Description string
}
