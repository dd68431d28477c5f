package cplex

//go:generate go run ../cmd/cplexgen -config bridge.hcl
