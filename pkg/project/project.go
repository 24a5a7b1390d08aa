package project

type Project struct {
	Id         int
	Name       string
	Code       string
	ClientId   int
	ContractId *int
	Status     string
}
