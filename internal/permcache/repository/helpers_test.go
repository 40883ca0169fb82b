package repository_test

import "github.com/bwmarrin/snowflake"

func snowflakeID(i int) snowflake.ID {
	return snowflake.ID(1000 + i)
}
